package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit rejects request bodies larger than limit with 413. The limit is
// a human-readable size: a bare number is bytes, and K, M and G suffixes
// (optionally with a trailing B) scale it. Unparseable limits fall back to
// 1MB.
//
// Content-Length is checked up front; bodies sent without one are capped
// while they are read.
func BodyLimit(limit string) echo.MiddlewareFunc {
	capBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > capBytes {
				return contentTooLarge(capBytes)
			}
			req.Body = &cappedBody{rc: req.Body, left: capBytes}
			return next(c)
		}
	}
}

var errBodyCapExceeded = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")

// cappedBody fails the read that crosses the cap. Reads are sliced to one
// byte past the remaining allowance so the overflow is observed without
// buffering beyond it.
type cappedBody struct {
	rc      io.ReadCloser
	left    int64
	tripped bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.tripped {
		return 0, errBodyCapExceeded
	}
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.rc.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		b.tripped = true
		return 0, errBodyCapExceeded
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.rc.Close() }

func contentTooLarge(capBytes int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", capBytes))
}

// parseLimit converts "64", "512K", "1M" or "2G" (with an optional trailing
// B) to a byte count.
func parseLimit(s string) int64 {
	const fallback = 1 << 20

	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")

	shift := 0
	switch {
	case strings.HasSuffix(s, "K"):
		shift, s = 10, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		shift, s = 20, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		shift, s = 30, strings.TrimSuffix(s, "G")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n << shift
}
