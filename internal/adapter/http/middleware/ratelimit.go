package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimiter creates a rate-limiting middleware backed by a shared counter
// store. Store errors let the request through.
func RateLimiter(limiter ports.RateLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), group)

		result, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// localIdleTTL is how long an idle client's bucket is kept.
const localIdleTTL = 10 * time.Minute

// LocalRateLimiter is a per-client token bucket kept in process memory.
// Used when no shared store is configured.
type LocalRateLimiter struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	clients     map[string]*localClient
	lastCleanup time.Time
}

type localClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter allows rule.Limit requests per rule.Window per client.
func NewLocalRateLimiter(rule RateLimitRule) *LocalRateLimiter {
	burst := int(rule.Limit)
	if burst < 1 {
		burst = 1
	}
	return &LocalRateLimiter{
		limit:       rate.Limit(float64(rule.Limit) / rule.Window.Seconds()),
		burst:       burst,
		clients:     make(map[string]*localClient),
		lastCleanup: time.Now(),
	}
}

func (l *LocalRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastCleanup) > localIdleTTL {
		l.cleanupLocked(now.Add(-localIdleTTL))
		l.lastCleanup = now
	}

	cl, ok := l.clients[key]
	if !ok {
		cl = &localClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Cleanup drops clients idle for longer than maxIdle.
func (l *LocalRateLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cleanupLocked(time.Now().Add(-maxIdle))
}

func (l *LocalRateLimiter) cleanupLocked(cutoff time.Time) int {
	removed := 0
	for key, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Middleware returns the gin handler enforcing the limiter per client IP.
func (l *LocalRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := l.get(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.burst))
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}
		c.Next()
	}
}
