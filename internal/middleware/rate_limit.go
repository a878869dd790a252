package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-billing-notifier/internal/metrics"
	"golang.org/x/time/rate"
)

// EnvRateLimiter manages rate limiters per environment
type EnvRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewEnvRateLimiter creates a new per-environment rate limiter
func NewEnvRateLimiter(rps float64, burst int) *EnvRateLimiter {
	return &EnvRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific environment
func (rl *EnvRateLimiter) GetLimiter(environment string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[environment]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		limiter, exists = rl.limiters[environment]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[environment] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

// RateLimitMiddleware creates a rate limiting middleware keyed by the
// environment query parameter. Requests without one share a bucket.
func RateLimitMiddleware(rl *EnvRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		environment := c.Query("environment")
		if environment == "" {
			environment = "default"
		}

		limiter := rl.GetLimiter(environment)

		if !limiter.Allow() {
			metrics.RateLimitExceeded.WithLabelValues(environment).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
