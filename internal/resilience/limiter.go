package resilience

import "time"

// Limiter is a token bucket over one host's persisted state, shared by
// every prismctl process talking to that host.
type Limiter struct {
	cfg   LimiterConfig
	store *Store
	host  string
}

// NewLimiter creates a limiter for host.
func NewLimiter(store *Store, host string, cfg LimiterConfig) *Limiter {
	cfg = Config{Limiter: cfg}.withDefaults().Limiter
	return &Limiter{cfg: cfg, store: store, host: host}
}

func (l *Limiter) refill(s *LimiterState, now time.Time) {
	if s.RefilledAt.IsZero() {
		s.Tokens = l.cfg.Burst
	} else {
		s.Tokens = min(s.Tokens+now.Sub(s.RefilledAt).Seconds()*l.cfg.PerSecond, l.cfg.Burst)
	}
	s.RefilledAt = now
}

// Allow takes a token. When it can't, it returns how long to wait: the
// server's Retry-After window, or the time until the next token.
// State errors fail open.
func (l *Limiter) Allow() (bool, time.Duration) {
	allowed, wait := true, time.Duration(0)
	err := l.store.Update(l.host, func(h *HostState, now time.Time) error {
		s := &h.Limiter
		if d := s.Blocked(now); d > 0 {
			allowed, wait = false, d
			return nil
		}
		l.refill(s, now)
		if s.Tokens < 1 {
			allowed = false
			wait = time.Duration((1 - s.Tokens) / l.cfg.PerSecond * float64(time.Second))
			return nil
		}
		s.Tokens--
		return nil
	})
	if err != nil {
		return true, 0
	}
	return allowed, wait
}

// Block stops fetches for d, as requested by a 429 or 503. Zero d applies
// the configured default. A longer block already in place is kept.
func (l *Limiter) Block(d time.Duration) error {
	if d <= 0 {
		d = l.cfg.RetryAfter
	}
	return l.store.Update(l.host, func(h *HostState, now time.Time) error {
		if until := now.Add(d); until.After(h.Limiter.BlockedTo) {
			h.Limiter.BlockedTo = until
		}
		return nil
	})
}

// Tokens returns the tokens available now.
func (l *Limiter) Tokens() (float64, error) {
	var tokens float64
	err := l.store.Update(l.host, func(h *HostState, now time.Time) error {
		l.refill(&h.Limiter, now)
		tokens = h.Limiter.Tokens
		return nil
	})
	return tokens, err
}

// Reset refills the bucket and lifts any block.
func (l *Limiter) Reset() error {
	return l.store.Update(l.host, func(h *HostState, now time.Time) error {
		h.Limiter = LimiterState{Tokens: l.cfg.Burst, RefilledAt: now}
		return nil
	})
}
