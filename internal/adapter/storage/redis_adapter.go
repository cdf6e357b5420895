package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	checkoutLockPrefix = "checkout:lock:"
	defaultLockTTL     = 30 * time.Second
)

// releaseLockScript deletes the lock only if it still carries our token, so an
// expired lock taken over by another request is left alone.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, lockTTL time.Duration) *RedisAdapter {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisAdapter{client: client, lockTTL: lockTTL}
}

func checkoutLockKey(userID int64) string {
	return checkoutLockPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisAdapter) AcquireCheckout(ctx context.Context, userID int64) (func(context.Context) error, bool, error) {
	key := checkoutLockKey(userID)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseLockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release checkout lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
