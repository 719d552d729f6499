package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type brokenPurger struct{}

func (brokenPurger) Purge(context.Context, time.Time) (int64, error) { return 0, errBoom }

func TestHousekeepingPurgesLapsedWindows(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	storeBackend := store.NewRateLimitBackend(st)
	memBackend := ratelimit.NewMemoryBackend()

	for _, b := range []ratelimit.Backend{storeBackend, memBackend} {
		_, _, err := b.Hit(ctx, "default:ip:10.0.0.1", 5, time.Minute, testNow)
		require.NoError(t, err)
		_, _, err = b.Hit(ctx, "default:ip:10.0.0.2", 5, time.Hour, testNow)
		require.NoError(t, err)
	}

	hk := NewHousekeepingService(slogx.Discard(), 0, brokenPurger{}, storeBackend, memBackend)
	require.Equal(t, time.Hour, hk.Interval)
	hk.Now = func() time.Time { return testNow.Add(2 * time.Minute) }

	require.EqualValues(t, 2, hk.Cleanup(ctx))
	require.Equal(t, 1, memBackend.Len())
	require.EqualValues(t, 0, hk.Cleanup(ctx))
}

func TestHousekeepingStartStop(t *testing.T) {
	hk := NewHousekeepingService(slogx.Discard(), time.Millisecond, ratelimit.NewMemoryBackend())
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}
