package resilience

import (
	"slices"
	"time"
)

// StateVersion is bumped when the persisted layout changes incompatibly.
const StateVersion = 2

// State is the persisted resilience state, one entry per library host so
// that an unreachable server doesn't block fetches from another.
type State struct {
	Version   int                   `json:"version"`
	Hosts     map[string]*HostState `json:"hosts"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// HostState is the resilience state of one library host.
type HostState struct {
	Breaker BreakerState `json:"breaker"`
	Limiter LimiterState `json:"limiter"`
	Permits PermitState  `json:"permits"`
}

// Circuit states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// BreakerState tracks the circuit of one host.
type BreakerState struct {
	Circuit   string    `json:"circuit"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
	Probes    int       `json:"probes,omitempty"`
	ProbedAt  time.Time `json:"probed_at"`
	OpenedAt  time.Time `json:"opened_at"`
	FailedAt  time.Time `json:"failed_at"`
}

func (b *BreakerState) circuit() string {
	if b.Circuit == "" {
		return CircuitClosed
	}
	return b.Circuit
}

func (b *BreakerState) reset() {
	*b = BreakerState{Circuit: CircuitClosed}
}

// LimiterState is the token bucket of one host.
type LimiterState struct {
	Tokens     float64   `json:"tokens"`
	RefilledAt time.Time `json:"refilled_at"`
	BlockedTo  time.Time `json:"blocked_to"`
}

// Blocked returns how long the host asked us to back off, zero if it didn't.
func (l *LimiterState) Blocked(now time.Time) time.Duration {
	if l.BlockedTo.IsZero() || !now.Before(l.BlockedTo) {
		return 0
	}
	return l.BlockedTo.Sub(now)
}

// PermitState lists the PID of every in-flight fetch, one entry per permit.
type PermitState struct {
	PIDs []int `json:"pids"`
}

func (p *PermitState) take(pid int) {
	p.PIDs = append(p.PIDs, pid)
}

func (p *PermitState) give(pid int) {
	if i := slices.Index(p.PIDs, pid); i >= 0 {
		p.PIDs = slices.Delete(p.PIDs, i, i+1)
	}
}

// prune drops permits held by processes that died without returning them.
func (p *PermitState) prune(alive func(int) bool) {
	p.PIDs = slices.DeleteFunc(p.PIDs, func(pid int) bool { return !alive(pid) })
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Version:   StateVersion,
		Hosts:     make(map[string]*HostState),
		UpdatedAt: time.Now(),
	}
}

// Host returns the state of host, creating it.
func (s *State) Host(host string) *HostState {
	if s.Hosts == nil {
		s.Hosts = make(map[string]*HostState)
	}
	h, ok := s.Hosts[host]
	if !ok {
		h = &HostState{Breaker: BreakerState{Circuit: CircuitClosed}}
		s.Hosts[host] = h
	}
	return h
}
