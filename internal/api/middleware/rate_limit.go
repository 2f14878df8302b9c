package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// bucket tracks request timestamps for one client within the window.
type bucket struct {
	mu    sync.Mutex
	times []time.Time
}

// RateLimiter enforces a fixed request budget per client IP over a
// sliding window. Exceeding clients receive 429 with Retry-After.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	requests int
	window   time.Duration
}

// NewRateLimiter creates a limiter allowing requests per window for
// each client IP.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		requests: requests,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) bucketFor(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{}
		rl.buckets[key] = b
	}
	return b
}

// allow records one request and reports whether it fits the budget.
// The second value is how long the client should wait on rejection.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	b := rl.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	kept := b.times[:0]
	for _, t := range b.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.times = kept

	if len(b.times) >= rl.requests {
		retryAfter := rl.window - now.Sub(b.times[0])
		return false, retryAfter
	}
	b.times = append(b.times, now)
	return true, 0
}

// cleanup drops idle client buckets so the map does not grow unbounded.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-rl.window)
		rl.mu.Lock()
		for key, b := range rl.buckets {
			b.mu.Lock()
			idle := len(b.times) == 0 || !b.times[len(b.times)-1].After(cutoff)
			b.mu.Unlock()
			if idle {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware is the gin adapter for the limiter.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.allow(c.ClientIP())
		if !ok {
			common.LogWarn("rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			seconds := int(retryAfter.Seconds()) + 1
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.AbortWithStatusJSON(common.ErrTooManyRequests.Status, common.ErrorResponse{
				Code:    common.ErrTooManyRequests.Code,
				Message: common.ErrTooManyRequests.Message,
			})
			return
		}
		c.Next()
	}
}
