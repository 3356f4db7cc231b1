package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// CacheConfig holds HTTP cache and ETag configuration.
type CacheConfig struct {
	MaxAge             int      // Cache max-age in seconds
	Private            bool     // Set Cache-Control: private
	VaryHeaders        []string // Headers to include in Vary
	ETagEnabled        bool     // Enable ETag generation
	ConditionalEnabled bool     // Answer If-None-Match with 304
}

// DefaultCacheConfig returns a CacheConfig suited to the aggregate endpoints:
// short-lived, private, with conditional revalidation.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:             300,
		Private:            true,
		VaryHeaders:        []string{"Accept"},
		ETagEnabled:        true,
		ConditionalEnabled: true,
	}
}

// cacheControl renders the Cache-Control value for the config.
func (cfg CacheConfig) cacheControl() string {
	scope := "public"
	if cfg.Private {
		scope = "private"
	}
	return scope + ", max-age=" + strconv.Itoa(cfg.MaxAge)
}

// CacheStore is a response cache backend.
type CacheStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
}

type memoryCacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-memory CacheStore. Expired entries are
// dropped lazily on Get and in bulk by the cleanup goroutine.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

// Get returns the cached body for key, treating expired entries as misses.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.Delete(key)
		return nil, false
	}
	return e.body, true
}

// Set stores value under key for ttl.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{body: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes one entry.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryCacheEntry)
}

// sweep removes every entry already expired at now.
func (c *MemoryCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// StartCleanup sweeps expired entries on the given interval until the context
// is cancelled.
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.sweep(now)
			}
		}
	}()
}

// captureWriter holds back the status and body so the middleware can decide
// what to send after the handler has run. Headers pass straight through to
// the wrapped writer.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func capture(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *captureWriter) WriteHeader(code int) { w.status = code }

func (w *captureWriter) Write(p []byte) (int, error) { return w.body.Write(p) }

// emit sends the captured status and body to the wrapped writer.
func (w *captureWriter) emit() error {
	w.ResponseWriter.WriteHeader(w.status)
	if w.body.Len() == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}

// ETagMiddleware computes ETag, Cache-Control and Vary headers for GET and
// HEAD responses, and answers a matching If-None-Match with 304 Not Modified
// when ConditionalEnabled is set. Error responses pass through untouched.
func ETagMiddleware(cfg CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			res := c.Response()
			orig := res.Writer
			cw := capture(orig)
			res.Writer = cw

			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}
			if cw.status >= 400 {
				return cw.emit()
			}

			res.Header().Set("Cache-Control", cfg.cacheControl())
			if len(cfg.VaryHeaders) > 0 {
				res.Header().Set("Vary", strings.Join(cfg.VaryHeaders, ", "))
			}

			if cfg.ETagEnabled {
				etag := computeETag(cw.body.Bytes())
				res.Header().Set("ETag", etag)
				if cfg.ConditionalEnabled && etagMatch(req.Header.Get("If-None-Match"), etag) {
					orig.WriteHeader(http.StatusNotModified)
					return nil
				}
			}

			return cw.emit()
		}
	}
}

// ResponseCacheMiddleware caches GET response bodies in store for ttl. The
// key carries no caller identity, so this must only wrap routes whose
// responses are identical for every caller, such as the table-wide
// aggregates. Cached bodies are replayed as application/json.
func ResponseCacheMiddleware(store CacheStore, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}

			key := cacheKey(req)
			if body, ok := store.Get(key); ok {
				h := c.Response().Header()
				h.Set("X-Cache", "HIT")
				h.Set("Content-Type", echo.MIMEApplicationJSON)
				c.Response().Writer.WriteHeader(http.StatusOK)
				_, err := c.Response().Writer.Write(body)
				return err
			}

			res := c.Response()
			orig := res.Writer
			cw := capture(orig)
			res.Writer = cw

			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}

			if cw.status < 400 {
				store.Set(key, cw.body.Bytes(), ttl)
			}
			res.Header().Set("X-Cache", "MISS")
			return cw.emit()
		}
	}
}

// cacheKey identifies a response by method, request URI and Accept header.
func cacheKey(r *http.Request) string {
	return r.Method + " " + r.URL.RequestURI() + " " + r.Header.Get("Accept")
}

// computeETag returns a weak ETag over the body.
func computeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`W/"%x"`, sum[:16])
}

// etagMatch reports whether the If-None-Match header names etag. Comparison
// is weak: W/"x" and "x" match. The header may list several candidates or
// the wildcard "*".
func etagMatch(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
