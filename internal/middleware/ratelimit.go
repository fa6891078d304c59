package middleware

import (
	"net/http"
	"sync"
	"time"

	"memoai-go/internal/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ttlLimiterCache is a simple TTL map for per-key limiters with opportunistic
// sweeping.
type ttlLimiterCache struct {
	mu        sync.Mutex
	items     map[string]*limiterEntry
	ttl       time.Duration
	lastSweep time.Time
}

func newTTLLimiterCache(ttl time.Duration) *ttlLimiterCache {
	return &ttlLimiterCache{items: make(map[string]*limiterEntry), ttl: ttl}
}

func (c *ttlLimiterCache) get(key string, makeFn func() *rate.Limiter) *rate.Limiter {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	lim := makeFn()
	c.items[key] = &limiterEntry{lim: lim, lastSeen: now}
	// opportunistic sweep every ~2 minutes
	if c.lastSweep.IsZero() || now.Sub(c.lastSweep) > 2*time.Minute {
		c.sweepLocked(now)
		c.lastSweep = now
	}
	return lim
}

func (c *ttlLimiterCache) sweepLocked(now time.Time) {
	if c.ttl <= 0 {
		c.ttl = 15 * time.Minute
	}
	for k, e := range c.items {
		if now.Sub(e.lastSeen) > c.ttl {
			delete(c.items, k)
		}
	}
}

// RateLimiter enforces a per-client-IP token bucket plus a global hourly
// budget guarding the AI providers against abuse. Disabled limiters pass
// everything through.
func RateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	rps := cfg.PerIPRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.PerIPBurst
	if burst <= 0 {
		burst = 20
	}

	cache := newTTLLimiterCache(15 * time.Minute)

	var global *rate.Limiter
	if cfg.GlobalPerHour > 0 {
		global = rate.NewLimiter(rate.Limit(float64(cfg.GlobalPerHour)/3600.0), cfg.GlobalPerHour/10+1)
	}

	return func(c *gin.Context) {
		if global != nil && !global.Allow() {
			c.Header("Retry-After", "3600")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"message":     "Global rate limit exceeded",
					"type":        "rate_limit_error",
					"retry_after": 3600,
				},
			})
			c.Abort()
			return
		}

		lim := cache.get(c.ClientIP(), func() *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), burst)
		})
		if !lim.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"message": "Rate limit exceeded",
					"type":    "rate_limit_error",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
