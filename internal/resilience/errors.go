package resilience

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCircuitOpen  = errors.New("circuit open: library server is failing")
	ErrRateLimited  = errors.New("rate limited")
	ErrBulkheadFull = errors.New("too many concurrent requests")
)

// RejectedError is returned when a gate refuses a fetch before it starts.
type RejectedError struct {
	Host       string
	Reason     error // one of the sentinels above
	RetryAfter time.Duration
}

func (e *RejectedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: %v (retry in %s)", e.Host, e.Reason, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("%s: %v", e.Host, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Reason }
