package repo

import (
	"context"
	"errors"
	"sync"
)

// Handle tracks the completion of an update. Callers whose updates were
// coalesced share one Handle, which settles exactly once with the outcome
// of the newest fetch.
type Handle struct {
	done    chan struct{}
	err     error
	settle  sync.Once
	start   func()
	started sync.Once
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Completed returns a Handle that has already succeeded.
func Completed() *Handle {
	h := newHandle()
	h.resolve(nil)
	return h
}

// Failed returns a Handle that has already failed with err.
func Failed(err error) *Handle {
	h := newHandle()
	h.resolve(err)
	return h
}

// Deferred returns a Handle that calls start on its first Done or Wait and
// then mirrors the Handle start returned.
func Deferred(start func() *Handle) *Handle {
	h := newHandle()
	h.start = func() {
		inner := start()
		go func() {
			<-inner.Done()
			h.resolve(inner.err)
		}()
	}
	return h
}

func (h *Handle) resolve(err error) {
	h.settle.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done returns a channel closed when the update settles.
// For a deferred Handle the first call dispatches the update.
func (h *Handle) Done() <-chan struct{} {
	if h.start != nil {
		h.started.Do(h.start)
	}
	return h.done
}

// Err returns the outcome once Done is closed, nil before that.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the update settles or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.Done():
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll waits for every handle and joins their failures.
func WaitAll(ctx context.Context, handles ...*Handle) error {
	var errs []error
	for _, h := range handles {
		if err := h.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
