package resilience

import (
	"os"
	"time"
)

// Bulkhead caps the fetches in flight against one host across processes.
// Each permit is recorded with the holder's PID so that permits of dead
// processes are reclaimed.
type Bulkhead struct {
	cfg   BulkheadConfig
	store *Store
	host  string
	pid   int
	alive func(pid int) bool
}

// NewBulkhead creates a bulkhead for host.
func NewBulkhead(store *Store, host string, cfg BulkheadConfig) *Bulkhead {
	cfg = Config{Bulkhead: cfg}.withDefaults().Bulkhead
	return &Bulkhead{cfg: cfg, store: store, host: host, pid: os.Getpid(), alive: processAlive}
}

// Acquire takes a permit. The returned release must be called exactly once
// when acquired is true. State errors fail open.
func (b *Bulkhead) Acquire() (release func(), acquired bool) {
	acquired = true
	err := b.store.Update(b.host, func(h *HostState, _ time.Time) error {
		h.Permits.prune(b.alive)
		if len(h.Permits.PIDs) >= b.cfg.MaxConcurrent {
			acquired = false
			return nil
		}
		h.Permits.take(b.pid)
		return nil
	})
	if err != nil {
		return func() {}, true
	}
	if !acquired {
		return nil, false
	}
	return func() {
		_ = b.store.Update(b.host, func(h *HostState, _ time.Time) error {
			h.Permits.give(b.pid)
			return nil
		})
	}, true
}

// InUse returns the number of live permits.
func (b *Bulkhead) InUse() (int, error) {
	state, err := b.store.Load()
	if err != nil {
		return 0, err
	}
	h, ok := state.Hosts[b.host]
	if !ok {
		return 0, nil
	}
	permits := h.Permits
	permits.prune(b.alive)
	return len(permits.PIDs), nil
}
