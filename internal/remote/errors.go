package remote

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx response from the library server.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // from the Retry-After header, zero if absent
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Trips reports whether the failure implicates the server: 5xx responses
// do, client errors and rate limiting don't.
func (e *APIError) Trips() bool {
	return e.StatusCode >= 500
}

// Backoff returns the back-off the server requested. A 429 always asks
// for one, falling back to the limiter default when the header is missing.
func (e *APIError) Backoff() (time.Duration, bool) {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return e.RetryAfter, true
	case e.StatusCode == http.StatusServiceUnavailable && e.RetryAfter > 0:
		return e.RetryAfter, true
	default:
		return 0, false
	}
}

// IsNotFound reports whether the error is a 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsAuth reports whether the server rejected the credentials.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
	if gjson.ValidBytes(body) {
		e.Message = gjson.GetBytes(body, "error").String()
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 200 {
			e.Message = e.Message[:200]
		}
	}
	return e
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
