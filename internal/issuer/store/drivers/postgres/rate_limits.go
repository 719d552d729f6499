package postgres

import (
	"context"
	"fmt"
	"time"
)

type rateLimitsRepo struct {
	q querier
}

// hitRateLimitQuery resets a lapsed window or bumps the counter, stopping at
// max+1 so a flood of denied requests does not grow it without bound.
const hitRateLimitQuery = `
	INSERT INTO rate_limits (key, count, reset_at)
	VALUES ($1, 1, $2)
	ON CONFLICT (key) DO UPDATE SET
		count = CASE
			WHEN $3 >= rate_limits.reset_at THEN 1
			WHEN rate_limits.count <= $4 THEN rate_limits.count + 1
			ELSE rate_limits.count
		END,
		reset_at = CASE
			WHEN $3 >= rate_limits.reset_at THEN EXCLUDED.reset_at
			ELSE rate_limits.reset_at
		END
	RETURNING count, reset_at`

func (r *rateLimitsRepo) HitRateLimit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (int, time.Time, error) {
	var (
		count   int
		resetAt time.Time
	)
	err := r.q.QueryRowContext(ctx, hitRateLimitQuery, key, now.Add(window), now, max).Scan(&count, &resetAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("hit rate limit: %w", err)
	}
	return count, resetAt.UTC(), nil
}

func (r *rateLimitsRepo) DeleteExpiredRateLimits(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM rate_limits WHERE reset_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limits: %w", err)
	}
	return res.RowsAffected()
}
