package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
)

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
}

// Policy is the ceiling for one route class within one window.
type Policy struct {
	Limit  int
	Window time.Duration
}

func (p Policy) normalize() Policy {
	if p.Limit <= 0 {
		p.Limit = 1
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

// Limiter decides whether a keyed request fits under a policy. Increments
// must be atomic: two concurrent requests for the same key never both observe
// the pre-increment count.
type Limiter interface {
	Allow(ctx context.Context, key string, policy Policy) (Decision, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// RateLimiter wires a Limiter into the middleware chain for one route class.
type RateLimiter struct {
	limiter Limiter
	policy  Policy
	mode    FailureMode
	scope   string
	keyFunc func(r *http.Request) string
}

func NewRateLimiter(limiter Limiter, policy Policy, mode FailureMode, scope string, keyFunc func(r *http.Request) string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = clientIP
	}
	return &RateLimiter{
		limiter: limiter,
		policy:  policy.normalize(),
		mode:    mode,
		scope:   scope,
		keyFunc: keyFunc,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.scope + ":" + rl.keyFunc(r)
			decision, err := rl.limiter.Allow(r.Context(), key, rl.policy)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error", string(rl.mode))
				if rl.mode == FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				writeRateLimitHeaders(w.Header(), rl.policy.Limit, 0, time.Now().Add(rl.policy.Window))
				w.Header().Set("Retry-After", retryAfterHeader(rl.policy.Window))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.policy.Limit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny", string(rl.mode))
				observability.RecordRateLimitRetryAfter(r.Context(), rl.scope, decision.RetryAfter)
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow", string(rl.mode))
			next.ServeHTTP(w, r)
		})
	}
}

// localFixedWindowLimiter is the single-instance fallback. Window boundaries
// are deterministic (wall clock truncated to the window size), matching the
// Redis limiter's bucketing.
type localFixedWindowLimiter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	sweep   time.Time
}

type localBucket struct {
	windowStart time.Time
	count       int
}

func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{
		buckets: make(map[string]*localBucket),
		sweep:   time.Now().Add(time.Minute),
	}
}

func (l *localFixedWindowLimiter) Allow(_ context.Context, key string, policy Policy) (Decision, error) {
	policy = policy.normalize()
	now := time.Now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweep) {
		for k, b := range l.buckets {
			if now.Sub(b.windowStart) > 2*policy.Window {
				delete(l.buckets, k)
			}
		}
		l.sweep = now.Add(policy.Window)
	}

	b, ok := l.buckets[key]
	if !ok || !b.windowStart.Equal(windowStart) {
		b = &localBucket{windowStart: windowStart}
		l.buckets[key] = b
	}
	b.count++

	if b.count > policy.Limit {
		return Decision{
			Allowed:    false,
			RetryAfter: resetAt.Sub(now),
			Remaining:  0,
			ResetAt:    resetAt,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: policy.Limit - b.count,
		ResetAt:   resetAt,
	}, nil
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

func writeRateLimitHeaders(h http.Header, limit, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", max(limit, 0)))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}
