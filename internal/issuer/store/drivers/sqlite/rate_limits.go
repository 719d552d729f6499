package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite/gen"
)

type rateLimitsRepo struct {
	q *gen.Queries
}

func (r *rateLimitsRepo) HitRateLimit(
	ctx context.Context,
	key string,
	max int,
	window time.Duration,
	now time.Time,
) (int, time.Time, error) {
	row, err := r.q.HitRateLimit(ctx, gen.HitRateLimitParams{
		Key:         key,
		NewResetAt:  toMillis(now.Add(window)),
		Now:         toMillis(now),
		MaxRequests: int64(max),
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return int(row.Count), fromMillis(row.ResetAt), nil
}

func (r *rateLimitsRepo) DeleteExpiredRateLimits(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredRateLimits(ctx, toMillis(now))
}
