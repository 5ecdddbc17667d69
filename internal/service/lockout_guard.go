package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutPolicy controls when consecutive failures trip a lock and how long
// each successive lock cycle lasts.
type LockoutPolicy struct {
	// Threshold is the number of consecutive failures that trips a lock.
	Threshold int
	// FailureWindow bounds how long the failure counter survives without a
	// new failure.
	FailureWindow time.Duration
	// Tiers are lock durations per lock cycle; the last tier is the cap.
	Tiers []time.Duration
	// CycleMemory is how long a completed lock cycle keeps escalating the
	// next one.
	CycleMemory time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold:     5,
		FailureWindow: 15 * time.Minute,
		Tiers:         []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour},
		CycleMemory:   24 * time.Hour,
	}
}

func (p LockoutPolicy) normalize() LockoutPolicy {
	if p.Threshold < 1 {
		p.Threshold = 5
	}
	if p.FailureWindow <= 0 {
		p.FailureWindow = 15 * time.Minute
	}
	if len(p.Tiers) == 0 {
		p.Tiers = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour}
	}
	if p.CycleMemory <= 0 {
		p.CycleMemory = 24 * time.Hour
	}
	return p
}

func (p LockoutPolicy) lockDuration(cycle int64) time.Duration {
	if cycle < 1 {
		cycle = 1
	}
	idx := int(cycle) - 1
	if idx >= len(p.Tiers) {
		idx = len(p.Tiers) - 1
	}
	return p.Tiers[idx]
}

// RedisLockoutGuard tracks failed authentication attempts per account in
// Redis so horizontally scaled handlers share lock state. INCR makes the
// counter update atomic: two concurrent failures can never both observe the
// pre-increment value.
type RedisLockoutGuard struct {
	client redis.UniversalClient
	prefix string
	policy LockoutPolicy
}

func NewRedisLockoutGuard(client redis.UniversalClient, prefix string, policy LockoutPolicy) *RedisLockoutGuard {
	if prefix == "" {
		prefix = "lockout"
	}
	return &RedisLockoutGuard{client: client, prefix: prefix, policy: policy.normalize()}
}

// Check returns the remaining lock duration, or zero when the account is not
// locked. Called before any password verification work.
func (g *RedisLockoutGuard) Check(ctx context.Context, identity string) (time.Duration, error) {
	ttl, err := g.client.PTTL(ctx, g.lockKey(identity)).Result()
	if err != nil {
		return 0, fmt.Errorf("lockout check: %w", err)
	}
	if ttl > 0 {
		return ttl, nil
	}
	return 0, nil
}

// RegisterFailure records one failed attempt. When the counter reaches the
// threshold it trips a lock whose duration escalates with each lock cycle,
// and returns that duration; otherwise it returns zero.
func (g *RedisLockoutGuard) RegisterFailure(ctx context.Context, identity string) (time.Duration, error) {
	failKey := g.failKey(identity)
	// INCR and EXPIRE travel in one pipeline, and the TTL is refreshed on
	// every failure. A counter that lost its TTL (a crash between the two
	// commands on an older deploy) picks one up again on the next attempt
	// instead of surviving forever.
	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, failKey)
	pipe.Expire(ctx, failKey, g.policy.FailureWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("lockout register failure: %w", err)
	}
	count := incr.Val()
	if count < int64(g.policy.Threshold) {
		return 0, nil
	}

	cycleKey := g.cycleKey(identity)
	cycle, err := g.client.Incr(ctx, cycleKey).Result()
	if err != nil {
		return 0, fmt.Errorf("lockout trip: %w", err)
	}
	if err := g.client.Expire(ctx, cycleKey, g.policy.CycleMemory).Err(); err != nil {
		return 0, fmt.Errorf("lockout trip: %w", err)
	}

	lock := g.policy.lockDuration(cycle)
	trip := g.client.TxPipeline()
	trip.Set(ctx, g.lockKey(identity), "1", lock)
	trip.Del(ctx, failKey)
	if _, err := trip.Exec(ctx); err != nil {
		return 0, fmt.Errorf("lockout trip: %w", err)
	}
	return lock, nil
}

// Reset clears all failure state after a successful authentication.
func (g *RedisLockoutGuard) Reset(ctx context.Context, identity string) error {
	if err := g.client.Del(ctx, g.failKey(identity), g.lockKey(identity), g.cycleKey(identity)).Err(); err != nil {
		return fmt.Errorf("lockout reset: %w", err)
	}
	return nil
}

func (g *RedisLockoutGuard) failKey(identity string) string {
	return g.prefix + ":fail:" + normalizeIdentity(identity)
}

func (g *RedisLockoutGuard) lockKey(identity string) string {
	return g.prefix + ":lock:" + normalizeIdentity(identity)
}

func (g *RedisLockoutGuard) cycleKey(identity string) string {
	return g.prefix + ":cycle:" + normalizeIdentity(identity)
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
