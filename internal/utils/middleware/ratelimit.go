package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/emberwick/storefront/internal/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rate limit response headers.
const (
	RateLimitLimit     = "X-RateLimit-Limit"
	RateLimitRemaining = "X-RateLimit-Remaining"
	RateLimitReset     = "X-RateLimit-Reset"
	RetryAfter         = "Retry-After"
)

// rateLimitKey names the bucket a request is counted in.
type rateLimitKey func(*gin.Context) string

func ipKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// userKey buckets authenticated callers by user and anonymous ones by IP.
func userKey(c *gin.Context) string {
	if userID := GetUserID(c); userID != uuid.Nil {
		return "user:" + userID.String()
	}
	return ipKey(c)
}

// RateLimitByUser limits each authenticated user, or each IP when anonymous,
// to limit requests per window.
func RateLimitByUser(limiter outbound.RateLimiterPort, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(limiter, limit, window, userKey)
}

// RateLimitByIP limits each client IP to limit requests per window.
func RateLimitByIP(limiter outbound.RateLimiterPort, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(limiter, limit, window, ipKey)
}

func rateLimit(limiter outbound.RateLimiterPort, limit int, window time.Duration, key rateLimitKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decision, err := limiter.Take(ctx, key(c), limit, window)
		if err != nil {
			// Fail open: a limiter outage must not take the API down.
			logger.FromContext(ctx, nil).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header(RateLimitLimit, strconv.Itoa(decision.Limit))
		c.Header(RateLimitRemaining, strconv.Itoa(decision.Remaining))
		c.Header(RateLimitReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			wait := math.Ceil(time.Until(decision.ResetAt).Seconds())
			c.Header(RetryAfter, strconv.Itoa(max(int(wait), 1)))
			abort(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests, please try again later")
			return
		}

		c.Next()
	}
}
