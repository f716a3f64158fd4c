//go:build integration

package containers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"opsbridge/internal/platform/config"
	redisclient "opsbridge/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a throwaway Redis reached through the same Open path
// the server uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	fail := func(step string, err error) {
		_ = ctr.Terminate(ctx)
		t.Fatalf("%s: %v", step, err)
	}

	url, err := ctr.ConnectionString(ctx)
	if err != nil {
		fail("redis connection string", err)
	}
	client, err := redisclient.Open(ctx, config.RedisConfig{URL: url, PoolSize: 4})
	if err != nil {
		fail("open redis", err)
	}
	return &RedisContainer{Container: ctr, URL: url, Client: client}
}

// FlushAll clears every key; suites call it before each test.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
