// Package output provides JSON and styled output formatting and error handling.
package output

// Exit codes.
const (
	ExitOK          = 0 // Success
	ExitUsage       = 1 // Invalid arguments, flags or configuration
	ExitNotFound    = 2 // Resource not found
	ExitAuth        = 3 // Missing or rejected token
	ExitRateLimit   = 4 // Rate limited by the server or the local limiter
	ExitUnavailable = 5 // Circuit open or too many concurrent requests
	ExitNetwork     = 6 // Connection/DNS/timeout error
	ExitAPI         = 7 // Server returned error
	ExitCanceled    = 8 // Interrupted
)

// Error codes for the JSON envelope.
const (
	CodeUsage       = "usage"
	CodeNotFound    = "not_found"
	CodeAuth        = "auth_required"
	CodeRateLimit   = "rate_limit"
	CodeUnavailable = "unavailable"
	CodeNetwork     = "network"
	CodeAPI         = "api_error"
	CodeCanceled    = "canceled"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeAuth:
		return ExitAuth
	case CodeRateLimit:
		return ExitRateLimit
	case CodeUnavailable:
		return ExitUnavailable
	case CodeNetwork:
		return ExitNetwork
	case CodeCanceled:
		return ExitCanceled
	default:
		return ExitAPI
	}
}
