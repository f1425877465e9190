package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFetch = errors.New("fetch failed")

// noDebounce publishes loading changes synchronously so tests can read them.
var noDebounce = WithLoadingDebounce(0)

func wait(t *testing.T, h *Handle) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		t.Fatal("handle did not settle")
		return nil
	}
}

func receive[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v := <-sub.C():
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("nothing received")
		var zero T
		return zero
	}
}

func requireNothing[T any](t *testing.T, sub *Subscription[T], within time.Duration) {
	t.Helper()
	select {
	case v := <-sub.C():
		require.Failf(t, "unexpected delivery", "%v", v)
	case <-time.After(within):
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}
