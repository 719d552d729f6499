package store

import (
	"context"
	"time"
)

// RateLimitBackend adapts a Store to ratelimit.Backend so the limiter can
// share the service database instead of needing Redis.
type RateLimitBackend struct {
	store Store
}

func NewRateLimitBackend(s Store) *RateLimitBackend {
	return &RateLimitBackend{store: s}
}

func (b *RateLimitBackend) Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (int, time.Time, error) {
	return b.store.RateLimits().HitRateLimit(ctx, key, max, window, now)
}

// Purge lets housekeeping drop lapsed windows.
func (b *RateLimitBackend) Purge(ctx context.Context, now time.Time) (int64, error) {
	return b.store.RateLimits().DeleteExpiredRateLimits(ctx, now)
}
