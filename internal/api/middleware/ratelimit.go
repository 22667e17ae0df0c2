package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
	"golang.org/x/time/rate"
)

// DefaultCleanupInterval is how often per-IP limiters are reset
const DefaultCleanupInterval = 10 * time.Minute

// IPRateLimiter manages rate limiters per IP address
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    b,
	}
}

// GetLimiter returns the rate limiter for the given IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(i.rate, i.burst)
		i.limiters[ip] = limiter
	}

	return limiter
}

// Len returns the number of tracked IPs
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.limiters)
}

// CleanupOldEntries removes old entries from the limiter map
func (i *IPRateLimiter) CleanupOldEntries() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.limiters = make(map[string]*rate.Limiter)
}

// RunCleanup clears the limiter map every interval until ctx is done
func (i *IPRateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.CleanupOldEntries()
		}
	}
}

// Middleware rejects requests from IPs over their limit
func (i *IPRateLimiter) Middleware(secLog *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			l := i.GetLimiter(ip)

			if !l.Allow() {
				if secLog != nil {
					secLog.RateLimitExceeded(ip, c.Path())
				}

				c.Response().Header().Set("Retry-After", "60")
				return echo.NewHTTPError(429, map[string]string{
					"error":       "rate limit exceeded",
					"code":        "RATE_LIMITED",
					"retry_after": "60",
				})
			}

			return next(c)
		}
	}
}

// RateLimiter returns rate limiting middleware whose per-IP state is
// cleared periodically until ctx is done
func RateLimiter(ctx context.Context, requestsPerSecond float64, burst int, secLog *logger.SecurityLogger) echo.MiddlewareFunc {
	limiter := NewIPRateLimiter(rate.Limit(requestsPerSecond), burst)
	go limiter.RunCleanup(ctx, DefaultCleanupInterval)
	return limiter.Middleware(secLog)
}

// RateLimiterWithConfig returns rate limiting middleware with custom config
// and no background cleanup
func RateLimiterWithConfig(requestsPerSecond float64, burst int, secLog *logger.SecurityLogger) echo.MiddlewareFunc {
	return NewIPRateLimiter(rate.Limit(requestsPerSecond), burst).Middleware(secLog)
}
