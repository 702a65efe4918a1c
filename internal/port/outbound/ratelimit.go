package outbound

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of counting one request against a window.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// RateLimiterPort counts requests per key in fixed windows.
type RateLimiterPort interface {
	// Take counts one request under key. Rejected requests still count.
	Take(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
