package repo

import "time"

// State summarizes a repository's data for display and metrics.
type State int

const (
	StateEmpty   State = iota // never updated
	StateFresh                // updated since the last invalidation
	StateStale                // invalidated or past its fresh TTL, data still usable
	StateLoading              // fetch in flight
	StateError                // last fetch failed, cached data kept
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of a repository.
type Status struct {
	Name      string
	State     State
	FetchedAt time.Time // last successful fetch
	Err       error     // outcome of the last settled fetch
	Fetches   int       // settled fetches, superseded ones excluded
}

// Usable reports whether the repository holds data from a successful fetch.
func (s Status) Usable() bool {
	return !s.FetchedAt.IsZero()
}
