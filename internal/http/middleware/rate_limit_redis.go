package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindowLimiter shares counters across instances. One key per
// (key, window-start) bucket; the pipelined INCR+EXPIRE pair keeps the
// increment atomic and the key self-cleaning.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	policy = policy.normalize()
	now := time.Now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)
	bucket := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, policy.Window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}

	count := incr.Val()
	if count > int64(policy.Limit) {
		return Decision{
			Allowed:    false,
			RetryAfter: resetAt.Sub(now),
			Remaining:  0,
			ResetAt:    resetAt,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: policy.Limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
