package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = 15 * time.Minute
)

// ErrRateLimitUnavailable is returned when there is no Redis to hold counters.
var ErrRateLimitUnavailable = errors.New("rate limit store not available")

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyByEmail counts per session owner instead of per client IP when a
	// session was validated earlier in the chain.
	KeyByEmail bool
}

// RateLimiter counts requests per endpoint and client in Redis. Without Redis,
// or when Redis fails, requests are let through.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit == 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window == 0 {
		cfg.Window = defaultRateWindow
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		email, _ := GetEmail(c)

		subject := clientIP
		if cfg.KeyByEmail && email != "" {
			subject = email
		}
		key := rateLimitKey(subject, endpoint)

		allowed, err := checkRateLimit(c.Request.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventSuspiciousActivity,
				RequestID: GetRequestID(c),
				IP:        clientIP,
				Message:   fmt.Sprintf("Rate limit check failed: %v", err),
			})
			c.Next()
			return
		}

		if !allowed {
			util.LogRateLimitExceeded(util.RateLimitParams{Email: email, IP: clientIP, Endpoint: endpoint})
			util.CallTooManyRequests(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: fmt.Errorf("rate limit exceeded"),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(subject, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, subject)
}

// checkRateLimit returns true if the request is within the limit.
func checkRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return true, nil
	}

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	// The window starts at the first hit and is not extended by later ones.
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// ResetRateLimit clears the counter for subject (an IP or email) on endpoint.
func ResetRateLimit(ctx context.Context, subject, endpoint string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return ErrRateLimitUnavailable
	}
	return rdb.Del(ctx, rateLimitKey(subject, endpoint)).Err()
}
