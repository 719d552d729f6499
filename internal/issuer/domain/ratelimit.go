package domain

import "time"

// RateLimitEntry is one fixed window for a "<policy>:<identity>" key.
type RateLimitEntry struct {
	Key           string
	Count         int
	WindowResetAt time.Time
}
