package repo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Repository is the contract shared by every repository variant.
type Repository interface {
	// Name identifies the repository in logs, metrics and realms.
	Name() string

	// Update unconditionally (re)starts a fetch.
	Update() *Handle
	// UpdateDeferred is Update dispatched on the first Done or Wait.
	UpdateDeferred() *Handle
	// UpdateIfNotFresh updates unless the data is fresh.
	UpdateIfNotFresh() *Handle
	// UpdateIfNotFreshDeferred is UpdateIfNotFresh dispatched on the first Done or Wait.
	UpdateIfNotFreshDeferred() *Handle
	// UpdateIfEverUpdated updates only a repository that has succeeded at least once.
	UpdateIfEverUpdated() *Handle
	// Invalidate marks the data as not fresh.
	Invalidate()

	IsFresh() bool
	IsNeverUpdated() bool
	IsLoading() bool

	// Errors delivers every fetch failure that occurs after subscribing.
	Errors() *Subscription[error]
	// Loading delivers the debounced loading flag, replaying the latest.
	Loading() *Subscription[bool]

	Status() Status
	Close()
}

const mailboxSize = 16

// core holds the state machine common to every repository variant.
// State is owned by the run goroutine: entry points and fetch completions
// submit closures to the mailbox instead of locking.
type core struct {
	name     string
	logger   zerolog.Logger
	metrics  *Metrics
	freshTTL time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	mailbox chan func()
	quit    chan struct{}
	closing sync.Once

	// Written on the run goroutine only, readable from anywhere.
	loading      atomic.Bool
	fresh        atomic.Bool
	neverUpdated atomic.Bool
	fetchedAt    atomic.Int64

	errors     *Events[error]
	loadingOut *Latest[bool]
	debounce   *debouncer

	reportMu sync.Mutex
	lastErr  error
	fetches  int

	// Owned by the run goroutine.
	gen         uint64
	cancelFetch context.CancelFunc
	pending     *Handle
	updateFn    func() *Handle
}

func newCore(name string, o options) *core {
	ctx, cancel := context.WithCancel(o.ctx)
	c := &core{
		name:       name,
		logger:     o.logger.With().Str("repository", name).Logger(),
		metrics:    o.metrics,
		freshTTL:   o.freshTTL,
		ctx:        ctx,
		cancel:     cancel,
		mailbox:    make(chan func(), mailboxSize),
		quit:       make(chan struct{}),
		errors:     NewEvents[error](o.errorBuffer),
		loadingOut: NewLatestWith(false),
	}
	c.neverUpdated.Store(true)
	c.debounce = newDebouncer(o.debounce, func() {
		c.loadingOut.Publish(c.loading.Load())
	})
	go c.run()
	return c
}

func (c *core) run() {
	for {
		select {
		case fn := <-c.mailbox:
			fn()
		case <-c.quit:
			return
		}
	}
}

// call runs fn on the run goroutine and waits for it.
func (c *core) call(fn func()) error {
	done := make(chan struct{})
	select {
	case c.mailbox <- func() { defer close(done); fn() }:
	case <-c.quit:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-c.quit:
		return ErrClosed
	}
}

// post queues fn on the run goroutine without waiting.
func (c *core) post(fn func()) {
	select {
	case c.mailbox <- fn:
	case <-c.quit:
	}
}

func (c *core) dispatch(fn func() *Handle) *Handle {
	var h *Handle
	if err := c.call(func() { h = fn() }); err != nil {
		return Failed(err)
	}
	return h
}

// Name returns the repository name.
func (c *core) Name() string { return c.name }

// Update unconditionally (re)starts a fetch. Concurrent updates share the
// returned Handle, which settles with the newest fetch's outcome.
func (c *core) Update() *Handle {
	return c.dispatch(func() *Handle { return c.updateFn() })
}

// UpdateDeferred returns a Handle that starts the update when first awaited.
func (c *core) UpdateDeferred() *Handle {
	return Deferred(c.Update)
}

// Invalidate marks the data as not fresh. It neither cancels nor starts a fetch.
func (c *core) Invalidate() {
	_ = c.call(func() { c.fresh.Store(false) })
}

// UpdateIfNotFresh updates if the data is not fresh, otherwise it returns a
// completed Handle. The check and the dispatch are atomic.
func (c *core) UpdateIfNotFresh() *Handle {
	return c.dispatch(func() *Handle {
		if c.IsFresh() {
			return Completed()
		}
		return c.updateFn()
	})
}

// UpdateIfNotFreshDeferred returns a Handle that runs UpdateIfNotFresh when first awaited.
func (c *core) UpdateIfNotFreshDeferred() *Handle {
	return Deferred(c.UpdateIfNotFresh)
}

// UpdateIfEverUpdated updates only if a fetch ever succeeded, so background
// refreshes don't wake repositories nobody has used.
func (c *core) UpdateIfEverUpdated() *Handle {
	return c.dispatch(func() *Handle {
		if c.neverUpdated.Load() {
			return Completed()
		}
		return c.updateFn()
	})
}

// IsFresh reports whether a fetch succeeded since the last invalidation
// and within the fresh TTL.
func (c *core) IsFresh() bool {
	if !c.fresh.Load() {
		return false
	}
	if c.freshTTL <= 0 {
		return true
	}
	return time.Since(time.Unix(0, c.fetchedAt.Load())) < c.freshTTL
}

// IsNeverUpdated reports whether no fetch has ever succeeded.
func (c *core) IsNeverUpdated() bool { return c.neverUpdated.Load() }

// IsLoading reports whether a fetch is in flight.
func (c *core) IsLoading() bool { return c.loading.Load() }

// Errors subscribes to fetch failures.
func (c *core) Errors() *Subscription[error] { return c.errors.Subscribe() }

// Loading subscribes to the debounced loading flag.
func (c *core) Loading() *Subscription[bool] { return c.loadingOut.Subscribe() }

// Status returns a point-in-time view of the repository.
func (c *core) Status() Status {
	c.reportMu.Lock()
	lastErr, fetches := c.lastErr, c.fetches
	c.reportMu.Unlock()

	s := Status{Name: c.name, Err: lastErr, Fetches: fetches}
	if at := c.fetchedAt.Load(); at != 0 {
		s.FetchedAt = time.Unix(0, at)
	}
	switch {
	case c.IsLoading():
		s.State = StateLoading
	case lastErr != nil:
		s.State = StateError
	case c.IsNeverUpdated():
		s.State = StateEmpty
	case c.IsFresh():
		s.State = StateFresh
	default:
		s.State = StateStale
	}
	return s
}

// Close cancels the in-flight fetch, fails the pending Handle with ErrClosed
// and stops the repository. Later calls return handles failed with ErrClosed.
// Loading subscribers end on false. Subscriptions are not closed: their
// owners Close them.
func (c *core) Close() {
	c.closing.Do(func() {
		_ = c.call(func() {
			c.gen++
			if c.cancelFetch != nil {
				c.cancelFetch()
				c.cancelFetch = nil
			}
			if c.pending != nil {
				c.pending.resolve(ErrClosed)
				c.pending = nil
			}
			c.setLoading(false)
		})
		close(c.quit)
		c.cancel()
		c.debounce.stop()
		c.loadingOut.Publish(false)
	})
}

// The methods below run on the run goroutine.

func (c *core) setLoading(v bool) {
	if c.loading.Swap(v) == v {
		return
	}
	if c.metrics != nil {
		c.metrics.SetLoading(c.name, v)
	}
	c.debounce.trigger()
}

// sharedHandle returns the Handle shared by all callers of the update in
// flight, creating it for the first one.
func (c *core) sharedHandle() *Handle {
	if c.pending == nil {
		c.pending = newHandle()
	}
	return c.pending
}

// launch cancels the in-flight fetch and runs fetch on its own goroutine.
// The closure fetch returns is applied on the run goroutine unless a newer
// fetch was launched meanwhile; its error is the fetch outcome.
func (c *core) launch(fetch func(ctx context.Context) (apply func() error)) {
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelFetch = cancel

	started := time.Now()
	c.record(FetchStart, 0)

	go func() {
		apply := fetch(ctx)
		c.post(func() {
			elapsed := time.Since(started)
			if gen != c.gen {
				c.logger.Debug().Dur("elapsed", elapsed).Msg("superseded fetch discarded")
				c.record(FetchSuperseded, elapsed)
				return
			}
			c.cancelFetch = nil
			cancel()

			if err := apply(); err != nil {
				c.record(FetchError, elapsed)
				return
			}
			c.logger.Debug().Dur("elapsed", elapsed).Msg("fetch applied")
			c.record(FetchComplete, elapsed)
		})
	}()
}

// markUpdated records a successful fetch.
func (c *core) markUpdated() {
	c.fetchedAt.Store(time.Now().UnixNano())
	c.neverUpdated.Store(false)
	c.fresh.Store(true)
}

// fail publishes err and settles h with it. Cached data is left alone.
func (c *core) fail(h *Handle, err error) error {
	c.setLoading(false)
	c.logger.Warn().Err(err).Msg("fetch failed")
	c.errors.Publish(err)
	c.settle(h, err)
	return err
}

// settle records the outcome and resolves h, which is nil for a paged
// load-more nobody waits on.
func (c *core) settle(h *Handle, err error) {
	c.report(err)
	c.pending = nil
	if h != nil {
		h.resolve(err)
	}
}

func (c *core) report(err error) {
	c.reportMu.Lock()
	defer c.reportMu.Unlock()
	c.lastErr = err
	c.fetches++
}

func (c *core) record(t FetchEventType, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.Record(FetchEvent{
		Timestamp:  time.Now(),
		Repository: c.name,
		Type:       t,
		Duration:   d,
	})
}
