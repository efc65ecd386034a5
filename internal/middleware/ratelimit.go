package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client. Idle clients are evicted.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing rps requests per second per
// client with the given burst. A non-positive rps disables limiting.
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
	}
}

// Allow reports whether the client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	if l.limit <= 0 {
		return true
	}
	limiter, ok := l.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients.Add(client, limiter)
	}
	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429. Clients are keyed by
// the user id set by an earlier auth middleware, otherwise by IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := UserID(c)
		if client == "" {
			client = c.ClientIP()
		}

		if !l.Allow(client) {
			retryAfter := 1
			if l.limit > 0 && l.limit < 1 {
				retryAfter = int(1 / float64(l.limit))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortWithError(c, http.StatusTooManyRequests, domain.ErrCodeRateLimit, "too many requests")
			return
		}
		c.Next()
	}
}
