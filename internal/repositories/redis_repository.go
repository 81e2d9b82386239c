package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// RedisRepository stores generated hints under "hint:<digest>" keys.
type RedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRepository(rdb *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisRepository) GetHint(ctx context.Context, digest string) (string, error) {
	hint, err := r.rdb.Get(ctx, "hint:"+digest).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return hint, err
}

func (r *RedisRepository) StoreHint(ctx context.Context, digest, hint string) error {
	return r.rdb.Set(ctx, "hint:"+digest, hint, r.ttl).Err()
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
