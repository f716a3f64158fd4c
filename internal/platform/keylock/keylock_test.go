package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsbridge/pkg/platform/sentinel"
)

func TestStriped_MutualExclusion(t *testing.T) {
	l := NewStriped(4)
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "example.com")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestStriped_ContextCancelled(t *testing.T) {
	l := NewStriped(1)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStriped_UnlockIsIdempotent(t *testing.T) {
	l := NewStriped(1)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock2, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock2()
}

func setupRedisLocker(t *testing.T, opts ...RedisOption) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, opts...), mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := setupRedisLocker(t)

	unlock, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"example.com"))
	assert.Greater(t, mr.TTL(keyPrefix+"example.com"), time.Duration(0))

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"example.com"))
}

func TestRedisLocker_HeldKeyTimesOut(t *testing.T) {
	l, _ := setupRedisLocker(t, WithWait(30*time.Millisecond), WithPollInterval(5*time.Millisecond))

	unlock, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "example.com")
	assert.ErrorIs(t, err, sentinel.ErrLockHeld)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	l, _ := setupRedisLocker(t, WithWait(time.Second), WithPollInterval(5*time.Millisecond))

	unlock, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		unlock()
	}()

	unlock2, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	l, mr := setupRedisLocker(t)

	unlock, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	require.NoError(t, mr.Set(keyPrefix+"example.com", "someone-else"))
	unlock()

	got, err := mr.Get(keyPrefix + "example.com")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_RenewsWhileHeld(t *testing.T) {
	l, mr := setupRedisLocker(t, WithTTL(90*time.Millisecond))
	key := keyPrefix + "example.com"

	unlock, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)

	// Nearly expired: only a renewal pushes the TTL back up.
	mr.SetTTL(key, time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL(key) > 10*time.Millisecond
	}, time.Second, 5*time.Millisecond)

	unlock()
	assert.False(t, mr.Exists(key))
}

func TestRedisLocker_StopsRenewingForeignLock(t *testing.T) {
	l, mr := setupRedisLocker(t, WithTTL(30*time.Millisecond))
	key := keyPrefix + "example.com"

	unlock, err := l.Lock(context.Background(), "example.com")
	require.NoError(t, err)

	require.NoError(t, mr.Set(key, "someone-else"))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, mr.TTL(key), "foreign key is not extended")

	unlock()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_RedisDown(t *testing.T) {
	l, mr := setupRedisLocker(t)
	mr.Close()

	_, err := l.Lock(context.Background(), "example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}
