package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"opsbridge/internal/documents"
	documentshandler "opsbridge/internal/documents/handler"
	"opsbridge/internal/filestore"
	"opsbridge/internal/identity"
	identityhandler "opsbridge/internal/identity/handler"
	"opsbridge/internal/inbox"
	inboxhandler "opsbridge/internal/inbox/handler"
	"opsbridge/internal/journal"
	journalhandler "opsbridge/internal/journal/handler"
	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/metrics"
	redisclient "opsbridge/internal/platform/redis"
	"opsbridge/internal/promotion"
	promotionhandler "opsbridge/internal/promotion/handler"
	"opsbridge/internal/recordstore"
	"opsbridge/internal/textgen"
	httptransport "opsbridge/internal/transport/http"
)

// app holds everything serve needs, plus the resources it must release.
type app struct {
	router  httptransport.Options
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// buildApp wires the services. Optional backends fall back to in-process
// implementations when their settings are absent.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}
	checks := map[string]httptransport.HealthCheck{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	records, err := buildRecordStore(cfg.RecordStore, m, logger)
	if err != nil {
		return nil, err
	}

	rdb, err := redisclient.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		checks["redis"] = redisclient.HealthCheck(rdb)
		logger.Info("identity lock backed by redis")
	}
	var lockClient goredis.Cmdable
	if rdb != nil {
		lockClient = rdb
	}
	locker := redisclient.Locker(lockClient, cfg.Redis, logger)

	var j journal.Store = journal.NewMemoryStore()
	if cfg.Database.URL != "" {
		db, err := openJournalDB(ctx, cfg.Database.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["postgres"] = db.PingContext
		pg := journal.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		j = pg
	} else {
		logger.Warn("DATABASE_URL not set; reconciliation journal is kept in memory")
	}

	var files filestore.Store
	if cfg.FileStore.Endpoint != "" {
		files, err = filestore.NewMinio(ctx, cfg.FileStore, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	} else {
		logger.Warn("FILESTORE_ENDPOINT not set; documents are kept in memory")
		files = filestore.NewMemoryStore()
	}

	inboxOpts := []inbox.Option{inbox.WithLogger(logger), inbox.WithMetrics(m)}
	if cfg.TextGen.APIKey != "" {
		gen, err := textgen.NewGenAI(ctx, cfg.TextGen.APIKey, cfg.TextGen.Model)
		if err != nil {
			a.Close()
			return nil, err
		}
		inboxOpts = append(inboxOpts, inbox.WithGenerator(gen))
	}

	ids, err := identity.New(records, cfg.Schema.Companies,
		identity.WithLogger(logger), identity.WithMetrics(m), identity.WithLocker(locker))
	if err != nil {
		a.Close()
		return nil, err
	}
	items, err := inbox.New(records, cfg.Schema, inboxOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	promos, err := promotion.New(records, cfg.Schema,
		promotion.WithLogger(logger), promotion.WithMetrics(m),
		promotion.WithJournal(j), promotion.WithTimeout(cfg.Server.PromotionTimeout))
	if err != nil {
		a.Close()
		return nil, err
	}
	docs, err := documents.New(files, documents.WithLogger(logger), documents.WithMetrics(m))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.router = httptransport.Options{
		Logger:         logger,
		Metrics:        m,
		Gatherer:       reg,
		APIToken:       cfg.Server.APIToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   checks,
		Handlers: []httptransport.Registrar{
			identityhandler.New(ids, logger),
			inboxhandler.New(items, logger),
			promotionhandler.New(promos, logger),
			journalhandler.New(j, logger),
			documentshandler.New(docs, logger),
		},
	}
	return a, nil
}

// buildRecordStore returns the REST client, or an in-memory store when no
// URL is configured.
func buildRecordStore(cfg config.RecordStore, m *metrics.Metrics, logger *slog.Logger) (recordstore.Store, error) {
	if cfg.BaseURL == "" {
		logger.Warn("RECORDSTORE_URL not set; using in-memory record store")
		return recordstore.NewMemoryStore(), nil
	}
	client, err := recordstore.New(recordstore.Config{
		BaseURL:     cfg.BaseURL,
		Token:       cfg.Token,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
	}, recordstore.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func openJournalDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
