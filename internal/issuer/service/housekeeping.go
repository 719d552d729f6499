package service

import (
	"context"
	"log/slog"
	"time"
)

// Purger drops lapsed rate-limit windows. store.RateLimitBackend and
// ratelimit.MemoryBackend implement it; Redis expires keys itself.
type Purger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// HousekeepingService periodically removes rate-limit windows that have
// lapsed so the table does not grow without bound. Delegations and
// issuances are never deleted.
type HousekeepingService struct {
	Purgers  []Purger
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(logger *slog.Logger, interval time.Duration, purgers ...Purger) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Purgers:  purgers,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "purgers", len(s.Purgers))
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs every purger once. Each is independent; one failing does
// not stop the others. Returns the total rows removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	s.Logger.Debug("starting housekeeping cleanup")

	var total int64
	for i, p := range s.Purgers {
		n, err := p.Purge(ctx, s.Now())
		if err != nil {
			s.Logger.Error("failed to purge expired rate limits", "error", err, "purger", i)
			continue
		}
		total += n
	}

	s.Logger.Info("housekeeping cleanup completed", "rate_limits_deleted", total)
	return total
}
