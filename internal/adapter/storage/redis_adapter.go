package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	freeCountKeyPrefix   = "stock:"
	idempotencyKeyPrefix = "alloc:req:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// Decrement clamped at zero, so a mirror that lags behind MySQL can never
// go negative.
var decrementFreeCountScript = redis.NewScript(`
local key = KEYS[1]

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current > 0 then
	redis.call('DECRBY', key, 1)
end

return 1
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetFreeCount(ctx context.Context, productCode string, count int) error {
	return r.client.Set(ctx, freeCountKeyPrefix+productCode, count, 0).Err()
}

func (r *RedisAdapter) DecrementFreeCount(ctx context.Context, productCode string) error {
	key := freeCountKeyPrefix + productCode
	return decrementFreeCountScript.Run(ctx, r.client, []string{key}).Err()
}

func (r *RedisAdapter) GetFreeCount(ctx context.Context, productCode string) (int, bool, error) {
	count, err := r.client.Get(ctx, freeCountKeyPrefix+productCode).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, requestID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+requestID, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, requestID string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+requestID).Err()
}
