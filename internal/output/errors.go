package output

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/basecamp/prismctl/internal/remote"
	"github.com/basecamp/prismctl/internal/repo"
	"github.com/basecamp/prismctl/internal/resilience"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func ErrCanceled(msg string) *Error {
	return &Error{Code: CodeCanceled, Message: msg}
}

func ErrRateLimit(retryAfter time.Duration) *Error {
	hint := "Try again later"
	if retryAfter > 0 {
		hint = fmt.Sprintf("Try again in %s", retryAfter.Round(time.Second))
	}
	return &Error{
		Code:       CodeRateLimit,
		Message:    "Rate limited",
		Hint:       hint,
		HTTPStatus: 429,
		Retryable:  true,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

// AsError converts err to an *Error, classifying the failures the data
// layer produces.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var rejected *resilience.RejectedError
	if errors.As(err, &rejected) {
		if errors.Is(rejected.Reason, resilience.ErrRateLimited) {
			out := ErrRateLimit(rejected.RetryAfter)
			out.Cause = err
			return out
		}
		hint := "Try again shortly"
		if rejected.RetryAfter > 0 {
			hint = fmt.Sprintf("Try again in %s", rejected.RetryAfter.Round(time.Second))
		}
		return &Error{Code: CodeUnavailable, Message: rejected.Error(), Hint: hint, Retryable: true, Cause: err}
	}

	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuth():
			return &Error{
				Code:       CodeAuth,
				Message:    apiErr.Error(),
				Hint:       "Set token in the config file or PRISMCTL_TOKEN",
				HTTPStatus: apiErr.StatusCode,
				Cause:      err,
			}
		case apiErr.IsNotFound():
			return &Error{Code: CodeNotFound, Message: apiErr.Error(), HTTPStatus: apiErr.StatusCode, Cause: err}
		}
		if d, ok := apiErr.Backoff(); ok {
			out := ErrRateLimit(d)
			out.HTTPStatus = apiErr.StatusCode
			out.Cause = err
			return out
		}
		return &Error{
			Code:       CodeAPI,
			Message:    apiErr.Error(),
			HTTPStatus: apiErr.StatusCode,
			Retryable:  apiErr.Trips(),
			Cause:      err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeCanceled, Message: "Canceled", Cause: err}
	}
	if errors.Is(err, repo.ErrMissingCursor) || errors.Is(err, repo.ErrTooManyPages) {
		return &Error{Code: CodeAPI, Message: err.Error(), Hint: "The server returned inconsistent paging", Cause: err}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return ErrNetwork(err)
	}

	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}
