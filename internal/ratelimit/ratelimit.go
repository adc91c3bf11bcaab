// Package ratelimit bounds how often a single caller can submit donations.
// Limits are advisory backpressure, not part of the ledger's correctness, so
// every failure path fails open.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Limiter answers whether a caller may proceed within the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// RedisLimiter implements a fixed one-minute window per key with INCR plus a
// window-scoped TTL. Shared across replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  perMinute,
		window: time.Minute,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	windowStart := time.Now().Truncate(l.window)
	resetAt := windowStart.Add(l.window)
	bucketKey := fmt.Sprintf("ratelimit:donate:%s:%d", key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, bucketKey)
	pipe.ExpireNX(ctx, bucketKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	return l.result(int(count.Val()), resetAt), nil
}

func (l *RedisLimiter) result(count int, resetAt time.Time) *Result {
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	r := &Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !r.Allowed {
		r.RetryAfter = int(time.Until(resetAt).Seconds()) + 1
	}
	return r
}

// MemoryLimiter is the single-process fallback used when Redis is not
// configured. Same fixed-window semantics.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	start  time.Time
	limit  int
	window time.Duration
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		counts: make(map[string]int),
		start:  time.Now().Truncate(time.Minute),
		limit:  perMinute,
		window: time.Minute,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := time.Now().Truncate(l.window)
	if windowStart.After(l.start) {
		l.counts = make(map[string]int)
		l.start = windowStart
	}
	l.counts[key]++

	resetAt := l.start.Add(l.window)
	remaining := l.limit - l.counts[key]
	if remaining < 0 {
		remaining = 0
	}
	r := &Result{
		Allowed:   l.counts[key] <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !r.Allowed {
		r.RetryAfter = int(time.Until(resetAt).Seconds()) + 1
	}
	return r, nil
}
