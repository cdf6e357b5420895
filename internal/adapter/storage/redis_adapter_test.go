package storage

import (
	"context"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// testUserID avoids collisions with locks left by other runs.
func testUserID(t *testing.T, client *redis.Client) int64 {
	id := rand.Int64N(1<<40) + 1
	t.Cleanup(func() { client.Del(context.Background(), checkoutLockKey(id)) })
	return id
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	userID := testUserID(t, client)

	release, ok, err := adapter.AcquireCheckout(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err := client.TTL(ctx, checkoutLockKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok, err = adapter.AcquireCheckout(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	exists, err := client.Exists(ctx, checkoutLockKey(userID)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	again, ok, err := adapter.AcquireCheckout(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, again(ctx))
}

func TestRedisLock_ReleaseKeepsForeignLock(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	userID := testUserID(t, client)

	release, ok, err := adapter.AcquireCheckout(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)

	// simulate expiry followed by another request taking the lock
	require.NoError(t, client.Set(ctx, checkoutLockKey(userID), "someone-else", time.Minute).Err())

	require.NoError(t, release(ctx))
	owner, err := client.Get(ctx, checkoutLockKey(userID)).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", owner)
}

func TestRedisLock_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	userID := testUserID(t, client)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := adapter.AcquireCheckout(ctx, userID); err == nil && ok {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}

func TestNewRedisAdapter_DefaultTTL(t *testing.T) {
	adapter := NewRedisAdapter(nil, 0)
	assert.Equal(t, defaultLockTTL, adapter.lockTTL)
}
