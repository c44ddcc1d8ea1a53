package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CreateRateLimiter throttles deposit creation per client IP so a stuck
// caller cannot hammer the upstream gateway's create endpoint.
type CreateRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewCreateRateLimiter creates a limiter allowing requestsPerMinute per IP
func NewCreateRateLimiter(requestsPerMinute int) *CreateRateLimiter {
	return &CreateRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    requestsPerMinute,
	}
}

func (cl *CreateRateLimiter) getLimiter(key string) *rate.Limiter {
	cl.mu.RLock()
	limiter, exists := cl.limiters[key]
	cl.mu.RUnlock()

	if exists {
		return limiter
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = cl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(cl.rate, cl.burst)
	cl.limiters[key] = limiter
	return limiter
}

// Limit returns middleware that rate limits by IP
func (cl *CreateRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !cl.getLimiter(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "RATE_LIMIT_EXCEEDED",
				"message":     "Too many requests. Please try again later.",
				"retry_after": 60,
				"request_id":  c.GetString("request_id"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CreateRateLimit creates middleware with the given requests per minute
func CreateRateLimit(requestsPerMinute int) gin.HandlerFunc {
	limiter := NewCreateRateLimiter(requestsPerMinute)
	return limiter.Limit()
}
