package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig bounds the request rate per client key.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig allows 100 requests per second with a burst of 200.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// Buckets idle longer than staleBucketAge are dropped once the store holds
// more than pruneThreshold keys.
const (
	staleBucketAge = 10 * time.Minute
	pruneThreshold = 10000
)

// bucket is the token-bucket state for one client key.
type bucket struct {
	tokens   float64
	last     time.Time // last refill
	lastSeen time.Time // last request, drives pruning
}

// limiterStore maps client keys to their buckets. One lock covers the map
// and every bucket in it.
type limiterStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     RateLimitConfig
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
	}
}

// take spends one token from the key's bucket, creating the bucket on first
// sight. It reports the whole tokens left, and on denial how many seconds
// until the next token accrues.
func (s *limiterStore) take(key string) (ok bool, remaining, retryAfter int) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, found := s.buckets[key]
	if !found {
		if len(s.buckets) >= pruneThreshold {
			s.prune(now)
		}
		b = &bucket{tokens: float64(s.cfg.BurstSize), last: now}
		s.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * s.cfg.RequestsPerSecond
	if burst := float64(s.cfg.BurstSize); b.tokens > burst {
		b.tokens = burst
	}
	b.last = now
	b.lastSeen = now

	if b.tokens < 1 {
		retry := 1
		if s.cfg.RequestsPerSecond > 0 {
			retry = int((1-b.tokens)/s.cfg.RequestsPerSecond) + 1
		}
		return false, 0, retry
	}
	b.tokens--
	return true, int(b.tokens), 0
}

// prune drops buckets that have gone unused. Caller holds s.mu.
func (s *limiterStore) prune(now time.Time) {
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > staleBucketAge {
			delete(s.buckets, key)
		}
	}
}

// RateLimit rejects requests over the configured rate with 429. Buckets are
// keyed on user id plus IP so sessions behind a shared NAT do not starve
// each other; anonymous requests share their IP's bucket.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if userID, ok := c.Get("user_id").(string); ok && userID != "" {
				key = userID + ":" + key
			}

			ok, remaining, retryAfter := store.take(key)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
