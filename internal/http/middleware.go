package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tazhibayda/expense-service/internal/metrics"
	"github.com/tazhibayda/expense-service/internal/repo"
)

const RequestIDKey = "X-Request-ID"

// RequestID takes the inbound X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDKey, id)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.InFlight.Inc()
		c.Next()
		metrics.InFlight.Dec()
		metrics.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

type bucket struct {
	tokens  int
	updated time.Time
}

// RateLimiter is the in-memory fallback when Redis is not configured.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), rate: rate, window: window}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if rl.rate <= 0 {
		return true
	}
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[ip]
	if !ok || now.Sub(b.updated) > rl.window {
		// sweep dead entries here so the map stays bounded by active clients
		for k, old := range rl.buckets {
			if now.Sub(old.updated) > rl.window {
				delete(rl.buckets, k)
			}
		}
		rl.buckets[ip] = &bucket{tokens: 1, updated: now}
		return true
	}
	if b.tokens < rl.rate {
		b.tokens++
		b.updated = now
		return true
	}
	return false
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}

// RateLimitParse throttles the model-backed endpoint per client IP. Counting
// goes through Redis when available so limits hold across replicas.
func RateLimitParse(rl *RateLimiter, rds *repo.Redis, perMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)
		allowed := true
		if rds != nil {
			allowed = rds.Allow(c.Request.Context(), ip, perMin)
		} else if rl != nil {
			allowed = rl.Allow(ip)
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
