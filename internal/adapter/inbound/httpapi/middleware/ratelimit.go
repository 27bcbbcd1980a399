package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonny/mediq/pkg/apierror"
)

// tokenBucket is a per-client token bucket.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per nanosecond
	lastRefill time.Time
}

func newTokenBucket(requestsPerMinute int, now time.Time) *tokenBucket {
	capacity := float64(requestsPerMinute)
	return &tokenBucket{
		tokens:     capacity,
		maxTokens:  capacity,
		refillRate: capacity / float64(time.Minute),
		lastRefill: now,
	}
}

func (tb *tokenBucket) allow(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = min(tb.maxTokens, tb.tokens+float64(now.Sub(tb.lastRefill))*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// RateLimiter keeps one bucket per client IP and evicts idle ones.
type RateLimiter struct {
	mu                sync.Mutex
	buckets           map[string]*tokenBucket
	requestsPerMinute int
	maxBuckets        int
	now               func() time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		buckets:           make(map[string]*tokenBucket),
		requestsPerMinute: requestsPerMinute,
		maxBuckets:        10000,
		now:               time.Now,
	}
}

// Run evicts stale buckets every interval until done is closed.
func (rl *RateLimiter) Run(done <-chan struct{}, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.evictStale(maxAge)
		}
	}
}

func (rl *RateLimiter) evictStale(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxAge)
	for ip, bucket := range rl.buckets {
		bucket.mu.Lock()
		stale := bucket.lastRefill.Before(cutoff)
		bucket.mu.Unlock()
		if stale {
			delete(rl.buckets, ip)
		}
	}
}

// bucket returns the bucket for ip, or nil once maxBuckets is reached.
func (rl *RateLimiter) bucket(ip string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= rl.maxBuckets {
			return nil
		}
		b = newTokenBucket(rl.requestsPerMinute, rl.now())
		rl.buckets[ip] = b
	}
	return b
}

// Middleware rejects requests over the per-IP budget with 429. A
// non-positive budget disables limiting.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.requestsPerMinute <= 0 {
			c.Next()
			return
		}
		b := rl.bucket(c.ClientIP())
		if b == nil || !b.allow(rl.now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.TooManyRequests())
			return
		}
		c.Next()
	}
}
