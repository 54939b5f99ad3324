package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter allows at most a fixed number of hits per key per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow counts the hit in a MULTI block that creates the key with its TTL
// before incrementing, so a counter never outlives its window.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := rl.prefix + ":" + key
	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, rl.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val() <= rl.limit, nil
}

// NoopRateLimiter is used when no Redis address is configured.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Allow(context.Context, string) (bool, error) {
	return true, nil
}
