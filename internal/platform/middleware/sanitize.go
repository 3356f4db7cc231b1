package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderLen caps any single header value at 8KB.
const maxHeaderLen = 8192

var (
	// Matching query values are logged, not blocked; parameterized queries
	// are the real defense.
	sqlInjectionRe = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	// Matching query keys or values are rejected outright.
	scriptInjectionRe = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize screens requests with a discarded logger. See SanitizeWithLogger.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger screens the request path, headers and query string for
// injection attempts before the router sees them. Suspicious requests get a
// 400; SQL-looking query values are only logged.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := screenPath(c.Request().URL); err != nil {
				return err
			}
			if err := screenHeaders(c.Request().Header); err != nil {
				return err
			}
			if err := screenQuery(c, logger); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// screenPath looks at both the decoded and the raw path so percent-encoded
// sequences cannot slip past the decoded check.
func screenPath(u *url.URL) error {
	for _, p := range []string{u.Path, u.RawPath} {
		if p == "" {
			continue
		}
		if hasTraversal(p) {
			return reject("path traversal detected")
		}
		if hasNullByte(p) {
			return reject("null byte injection detected")
		}
	}
	return nil
}

func screenHeaders(h http.Header) error {
	for name, values := range h {
		for _, v := range values {
			if len(v) > maxHeaderLen {
				return reject("header value exceeds maximum size: " + name)
			}
			if strings.ContainsAny(v, "\r\n") {
				return reject("header injection detected: " + name)
			}
		}
	}
	return nil
}

func screenQuery(c echo.Context, logger zerolog.Logger) error {
	for key, values := range c.Request().URL.Query() {
		if hasNullByte(key) {
			return reject("null byte injection detected in query parameter")
		}
		if scriptInjectionRe.MatchString(key) {
			return reject("script injection detected in query parameter")
		}
		for _, v := range values {
			if hasNullByte(v) {
				return reject("null byte injection detected in query parameter")
			}
			if scriptInjectionRe.MatchString(v) {
				return reject("script injection detected in query parameter")
			}
			if sqlInjectionRe.MatchString(v) {
				logger.Warn().
					Str("param", key).
					Str("path", c.Request().URL.Path).
					Str("remote_ip", c.RealIP()).
					Msg("query parameter matches SQL injection pattern")
			}
		}
	}
	return nil
}

// hasTraversal reports whether s contains a dot-dot sequence, raw or
// percent-encoded, including the double-encoded form.
func hasTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "..") ||
		strings.Contains(lower, "%2e%2e") ||
		strings.Contains(lower, "%252e")
}

// hasNullByte reports whether s contains a NUL, raw or percent-encoded.
func hasNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') ||
		strings.Contains(strings.ToLower(s), "%00")
}

func reject(reason string) error {
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

// SanitizeString strips NUL and control characters (keeping tab, newline and
// carriage return) and trims surrounding whitespace. Handlers use it on
// free-text fields before storing them.
func SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\x00' {
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
