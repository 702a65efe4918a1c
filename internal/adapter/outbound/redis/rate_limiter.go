package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// rateLimiter implements outbound.RateLimiterPort with fixed windows aligned to
// the window length.
type rateLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter adapter.
func NewRateLimiter(client redis.UniversalClient) outbound.RateLimiterPort {
	return &rateLimiter{client: client, now: time.Now}
}

func (r *rateLimiter) Take(ctx context.Context, key string, limit int, window time.Duration) (outbound.RateLimitDecision, error) {
	start := r.now().Truncate(window)
	fullKey := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, start.Unix())

	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, window)
		return nil
	})
	if err != nil {
		return outbound.RateLimitDecision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	used := int(count.Val())
	return outbound.RateLimitDecision{
		Allowed:   used <= limit,
		Limit:     limit,
		Remaining: max(limit-used, 0),
		ResetAt:   start.Add(window),
	}, nil
}

// Compile-time check
var _ outbound.RateLimiterPort = (*rateLimiter)(nil)
