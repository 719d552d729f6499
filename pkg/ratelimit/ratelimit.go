// Package ratelimit implements a fixed window that restarts on the first hit
// after it lapses. Counting is delegated to a Backend which must perform the
// read-or-create and compare-then-increment steps as one atomic operation.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time

	// Degraded is set when the backend failed and the request was let
	// through anyway.
	Degraded bool
}

// Backend records a single hit against key.
//
// If no window exists for key, or now >= the stored reset time, the backend
// starts a new window with count 1 and resetAt = now+window. Otherwise it
// increments count while count <= max, so a denied caller sees max+1 and the
// stored count never grows past that. The returned resetAt is the current
// window's, unchanged by denied hits.
type Backend interface {
	Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

// Limiter applies limits on top of a Backend. It fails open: a backend error
// is logged and the request is allowed.
type Limiter struct {
	backend Backend
	logger  *slog.Logger
	nowFn   func() time.Time
	onError func(ctx context.Context, key string, err error)
}

type Option func(*Limiter)

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.nowFn = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithErrorHook is called for every backend failure, after logging. The
// app wires a metrics counter here.
func WithErrorHook(fn func(ctx context.Context, key string, err error)) Option {
	return func(l *Limiter) { l.onError = fn }
}

func New(backend Backend, opts ...Option) *Limiter {
	l := &Limiter{
		backend: backend,
		logger:  slog.Default(),
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLimit counts one request against key. Limits of zero or less, and
// empty keys, are treated as unlimited.
func (l *Limiter) CheckLimit(ctx context.Context, key string, max int, window time.Duration) Result {
	now := l.nowFn()
	if max <= 0 || window <= 0 || key == "" {
		return Result{Allowed: true, Limit: max, Remaining: max, ResetAt: now}
	}

	count, resetAt, err := l.backend.Hit(ctx, key, max, window, now)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit backend unavailable, allowing request",
			"key", key,
			"error", err,
		)
		if l.onError != nil {
			l.onError(ctx, key, err)
		}
		return Result{
			Allowed:   true,
			Limit:     max,
			Remaining: max,
			ResetAt:   now.Add(window),
			Degraded:  true,
		}
	}

	if count > max {
		return Result{Allowed: false, Limit: max, Remaining: 0, ResetAt: resetAt}
	}
	return Result{Allowed: true, Limit: max, Remaining: max - count, ResetAt: resetAt}
}

// Check is CheckLimit with the numbers taken from p.
func (l *Limiter) Check(ctx context.Context, p Policy, identity string) Result {
	return l.CheckLimit(ctx, p.Key(identity), p.Requests, p.Window)
}
