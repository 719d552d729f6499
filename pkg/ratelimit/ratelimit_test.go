package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(b ratelimit.Backend, c *clock) *ratelimit.Limiter {
	return ratelimit.New(b,
		ratelimit.WithClock(c.Now),
		ratelimit.WithLogger(slogx.Discard()),
	)
}

func TestCheckLimitWindow(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newLimiter(ratelimit.NewMemoryBackend(), c)

	// First three fit in the window, counting down.
	for i, want := range []int{2, 1, 0} {
		res := l.CheckLimit(ctx, "address:0xabc", 3, time.Minute)
		require.True(t, res.Allowed, "request %d", i+1)
		require.Equal(t, want, res.Remaining)
		require.Equal(t, c.now.Add(time.Minute), res.ResetAt)
	}

	// Fourth is denied and keeps the original reset time.
	res := l.CheckLimit(ctx, "address:0xabc", 3, time.Minute)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, c.now.Add(time.Minute), res.ResetAt)

	// Denials don't push the window out.
	c.Advance(30 * time.Second)
	res = l.CheckLimit(ctx, "address:0xabc", 3, time.Minute)
	require.False(t, res.Allowed)
	require.Equal(t, c.now.Add(30*time.Second), res.ResetAt)

	// At the reset instant a fresh window starts.
	c.Advance(30 * time.Second)
	res = l.CheckLimit(ctx, "address:0xabc", 3, time.Minute)
	require.True(t, res.Allowed)
	require.Equal(t, 2, res.Remaining)
	require.Equal(t, c.now.Add(time.Minute), res.ResetAt)
}

func TestCheckLimitKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	l := newLimiter(ratelimit.NewMemoryBackend(), c)

	require.True(t, l.CheckLimit(ctx, "ip:10.0.0.1", 1, time.Minute).Allowed)
	require.False(t, l.CheckLimit(ctx, "ip:10.0.0.1", 1, time.Minute).Allowed)
	require.True(t, l.CheckLimit(ctx, "ip:10.0.0.2", 1, time.Minute).Allowed)
}

func TestCheckLimitConcurrentLastSlot(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	l := newLimiter(ratelimit.NewMemoryBackend(), c)

	const max = 5
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckLimit(ctx, "address:0xrace", max, time.Minute).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(max), allowed.Load())
}

type failingBackend struct{ calls atomic.Int32 }

func (f *failingBackend) Hit(context.Context, string, int, time.Duration, time.Time) (int, time.Time, error) {
	f.calls.Add(1)
	return 0, time.Time{}, errors.New("connection refused")
}

func TestCheckLimitFailsOpen(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}

	var hooked atomic.Int32
	b := &failingBackend{}
	l := ratelimit.New(b,
		ratelimit.WithClock(c.Now),
		ratelimit.WithLogger(slogx.Discard()),
		ratelimit.WithErrorHook(func(context.Context, string, error) { hooked.Add(1) }),
	)

	for range 10 {
		res := l.CheckLimit(ctx, "address:0xabc", 1, time.Minute)
		require.True(t, res.Allowed)
		require.True(t, res.Degraded)
	}
	require.Equal(t, int32(10), b.calls.Load())
	require.Equal(t, int32(10), hooked.Load())
}

func TestCheckLimitUnlimited(t *testing.T) {
	b := &failingBackend{}
	l := ratelimit.New(b, ratelimit.WithLogger(slogx.Discard()))

	require.True(t, l.CheckLimit(context.Background(), "k", 0, time.Minute).Allowed)
	require.True(t, l.CheckLimit(context.Background(), "", 10, time.Minute).Allowed)
	require.Zero(t, b.calls.Load(), "backend should not be consulted")
}

func TestMemoryBackendPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := ratelimit.NewMemoryBackend()

	_, _, _ = m.Hit(ctx, "a", 5, time.Minute, now)
	_, _, _ = m.Hit(ctx, "b", 5, time.Hour, now)

	n, err := m.Purge(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, 1, m.Len())
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_ISSUANCE_REQUESTS", "7")
	t.Setenv("RATELIMIT_ISSUANCE_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_AI_REQUESTS", "not-a-number")

	ps := ratelimit.DefaultPolicies().FromEnv()
	require.Equal(t, 7, ps.Issuance.Requests)
	require.Equal(t, 30*time.Second, ps.Issuance.Window)

	// Garbage falls back to the default.
	require.Equal(t, 10, ps.AI.Requests)
	require.Equal(t, 100, ps.Verify.Requests)
	require.Equal(t, 50, ps.Default.Requests)
}

func TestPoliciesMerge(t *testing.T) {
	ps := ratelimit.DefaultPolicies().Merge(ratelimit.Policies{
		Verify: ratelimit.Policy{Requests: 500},
	})
	require.Equal(t, 500, ps.Verify.Requests)
	require.Equal(t, time.Minute, ps.Verify.Window)
	require.Equal(t, "verify", ps.Verify.Name)
}

func TestPolicyKey(t *testing.T) {
	require.Equal(t, "issuance:address:0xabc", ratelimit.IssuancePolicy.Key("address:0xabc"))
	require.Equal(t, "", ratelimit.IssuancePolicy.Key(""))
}
