package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct {
	trips   bool
	backoff time.Duration
}

func (e statusErr) Error() string { return "status" }
func (e statusErr) Trips() bool   { return e.trips }
func (e statusErr) Backoff() (time.Duration, bool) {
	return e.backoff, e.backoff > 0
}

func newTestGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	return NewGate(NewStore(t.TempDir()), "photos.local", cfg, zerolog.Nop())
}

func TestGatePassesThrough(t *testing.T) {
	g := newTestGate(t, Config{})
	called := false
	require.NoError(t, g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestGateOpensCircuitOnServerFailures(t *testing.T) {
	g := newTestGate(t, Config{Breaker: BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}})
	network := errors.New("connection refused")
	for range 2 {
		assert.ErrorIs(t, g.Do(context.Background(), func(context.Context) error { return network }), network)
	}

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "photos.local", rejected.Host)
	assert.Positive(t, rejected.RetryAfter)
}

func TestGateClientErrorsDoNotTrip(t *testing.T) {
	g := newTestGate(t, Config{Breaker: BreakerConfig{FailureThreshold: 1}})
	_ = g.Do(context.Background(), func(context.Context) error { return statusErr{trips: false} })

	state, err := g.Breaker().State()
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, state)
}

func TestGateCancellationDoesNotTrip(t *testing.T) {
	g := newTestGate(t, Config{Breaker: BreakerConfig{FailureThreshold: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	_ = g.Do(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	state, _ := g.Breaker().State()
	assert.Equal(t, CircuitClosed, state)
}

func TestGateHonorsBackoff(t *testing.T) {
	g := newTestGate(t, Config{})
	_ = g.Do(context.Background(), func(context.Context) error {
		return statusErr{backoff: time.Minute}
	})

	err := g.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGateReleasesBulkheadPermit(t *testing.T) {
	g := newTestGate(t, Config{Bulkhead: BulkheadConfig{MaxConcurrent: 1}})
	for range 3 {
		require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
	}
	inUse, err := g.Bulkhead().InUse()
	require.NoError(t, err)
	assert.Zero(t, inUse)
}

func TestGateBulkheadFull(t *testing.T) {
	g := newTestGate(t, Config{Bulkhead: BulkheadConfig{MaxConcurrent: 1}})
	err := g.Do(context.Background(), func(ctx context.Context) error {
		return g.Do(ctx, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, ErrBulkheadFull)
}
