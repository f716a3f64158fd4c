package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/httpserver"
	"opsbridge/internal/platform/logger"
	httptransport "opsbridge/internal/transport/http"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides OPSBRIDGE_ADDR)")
	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.Log)
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Server.APIToken == "" {
		log.Warn("OPSBRIDGE_API_TOKEN not set; /v1 is unauthenticated")
	}

	budget := max(cfg.Server.RequestTimeout, cfg.Server.PromotionTimeout)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(a.router), budget)
	return httpserver.Run(ctx, srv, nil, httpserver.ShutdownTimeout, log)
}
