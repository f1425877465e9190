package resilience

import "time"

// Breaker is a circuit breaker over one host's persisted state.
type Breaker struct {
	cfg   BreakerConfig
	store *Store
	host  string
}

// NewBreaker creates a breaker for host.
func NewBreaker(store *Store, host string, cfg BreakerConfig) *Breaker {
	cfg = Config{Breaker: cfg}.withDefaults().Breaker
	return &Breaker{cfg: cfg, store: store, host: host}
}

// Allow reports whether a fetch may proceed. While half-open it reserves
// one of the probe slots; the caller must report the outcome with Success
// or Failure. State errors fail open.
func (b *Breaker) Allow() bool {
	allowed := true
	err := b.store.Update(b.host, func(h *HostState, now time.Time) error {
		s := &h.Breaker
		if s.circuit() == CircuitOpen {
			if now.Sub(s.OpenedAt) < b.cfg.OpenTimeout {
				allowed = false
				return nil
			}
			s.Circuit = CircuitHalfOpen
			s.Successes, s.Failures, s.Probes = 0, 0, 0
		}
		if s.circuit() != CircuitHalfOpen {
			return nil
		}
		// Probes from a crashed process never report back.
		if s.Probes >= b.cfg.HalfOpenProbes && now.Sub(s.ProbedAt) >= b.cfg.OpenTimeout {
			s.Probes = 0
		}
		if s.Probes >= b.cfg.HalfOpenProbes {
			allowed = false
			return nil
		}
		s.Probes++
		s.ProbedAt = now
		return nil
	})
	return allowed || err != nil
}

// Success records a fetch that reached the server and succeeded.
func (b *Breaker) Success() error {
	return b.store.Update(b.host, func(h *HostState, _ time.Time) error {
		s := &h.Breaker
		switch s.circuit() {
		case CircuitHalfOpen:
			s.Probes = max(s.Probes-1, 0)
			s.Successes++
			if s.Successes >= b.cfg.SuccessThreshold {
				s.reset()
			}
		case CircuitClosed:
			s.Failures = 0
		}
		return nil
	})
}

// Failure records a fetch that failed in a way that implicates the server.
func (b *Breaker) Failure() error {
	return b.store.Update(b.host, func(h *HostState, now time.Time) error {
		s := &h.Breaker
		s.FailedAt = now
		switch s.circuit() {
		case CircuitClosed:
			s.Failures++
			if s.Failures >= b.cfg.FailureThreshold {
				s.Circuit = CircuitOpen
				s.OpenedAt = now
			}
		case CircuitHalfOpen:
			s.Circuit = CircuitOpen
			s.OpenedAt = now
			s.Successes, s.Probes = 0, 0
		}
		return nil
	})
}

// Release returns a probe slot reserved by Allow without judging the
// server, for fetches that were canceled or never sent.
func (b *Breaker) Release() error {
	return b.store.Update(b.host, func(h *HostState, _ time.Time) error {
		if h.Breaker.circuit() == CircuitHalfOpen {
			h.Breaker.Probes = max(h.Breaker.Probes-1, 0)
		}
		return nil
	})
}

// State returns the circuit as the next Allow would see it.
func (b *Breaker) State() (string, error) {
	state, err := b.store.Load()
	if err != nil {
		return CircuitClosed, err
	}
	h, ok := state.Hosts[b.host]
	if !ok {
		return CircuitClosed, nil
	}
	s := h.Breaker
	if s.circuit() == CircuitOpen && time.Since(s.OpenedAt) >= b.cfg.OpenTimeout {
		return CircuitHalfOpen, nil
	}
	return s.circuit(), nil
}

// RetryIn returns how long the circuit stays open, zero if it isn't.
func (b *Breaker) RetryIn() time.Duration {
	state, err := b.store.Load()
	if err != nil {
		return 0
	}
	h, ok := state.Hosts[b.host]
	if !ok || h.Breaker.circuit() != CircuitOpen {
		return 0
	}
	return max(b.cfg.OpenTimeout-time.Since(h.Breaker.OpenedAt), 0)
}

// Reset closes the circuit.
func (b *Breaker) Reset() error {
	return b.store.Update(b.host, func(h *HostState, _ time.Time) error {
		h.Breaker.reset()
		return nil
	})
}
