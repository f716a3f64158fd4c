// Package redis opens the shared Redis connection and builds the identity
// lock on top of it.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/keylock"
)

// Open connects and pings. It returns a nil client when no URL is
// configured, so callers can fall back to in-process implementations.
func Open(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	overrideInt(&opts.PoolSize, cfg.PoolSize)
	overrideInt(&opts.MinIdleConns, cfg.MinIdleConns)
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// Locker returns the lock that serializes get-or-create per identity key:
// Redis-backed when client is set, so replicas exclude each other, and a
// process-local striped lock otherwise.
func Locker(client goredis.Cmdable, cfg config.RedisConfig, logger *slog.Logger) keylock.Locker {
	if client == nil {
		return keylock.NewStriped(0)
	}
	return keylock.NewRedis(client,
		keylock.WithTTL(cfg.LockTTL),
		keylock.WithWait(cfg.LockWait),
		keylock.WithLogger(logger),
	)
}

// HealthCheck pings the server.
func HealthCheck(client goredis.Cmdable) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
