package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T, cfg BreakerConfig) *Breaker {
	t.Helper()
	return NewBreaker(NewStore(t.TempDir()), "photos.local", cfg)
}

func TestBreakerStartsClosed(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{})
	state, err := b.State()
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, state)
	assert.True(t, b.Allow())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute})
	for range 3 {
		require.NoError(t, b.Failure())
	}

	state, _ := b.State()
	assert.Equal(t, CircuitOpen, state)
	assert.False(t, b.Allow())
	assert.Positive(t, b.RetryIn())
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 2})
	require.NoError(t, b.Failure())
	require.NoError(t, b.Success())
	require.NoError(t, b.Failure())

	state, _ := b.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestBreakerHalfOpenProbes(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      20 * time.Millisecond,
		HalfOpenProbes:   1,
	})
	require.NoError(t, b.Failure())
	time.Sleep(30 * time.Millisecond)

	state, _ := b.State()
	assert.Equal(t, CircuitHalfOpen, state)

	require.True(t, b.Allow(), "first probe allowed")
	assert.False(t, b.Allow(), "second probe waits for the first")

	require.NoError(t, b.Success())
	require.True(t, b.Allow())
	require.NoError(t, b.Success())

	state, _ = b.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, OpenTimeout: 20 * time.Millisecond})
	require.NoError(t, b.Failure())
	time.Sleep(30 * time.Millisecond)

	require.True(t, b.Allow())
	require.NoError(t, b.Failure())
	assert.False(t, b.Allow())
}

func TestBreakerReleaseFreesProbe(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, OpenTimeout: 20 * time.Millisecond})
	require.NoError(t, b.Failure())
	time.Sleep(30 * time.Millisecond)

	require.True(t, b.Allow())
	require.NoError(t, b.Release())
	assert.True(t, b.Allow())
}

func TestBreakerReset(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 1})
	require.NoError(t, b.Failure())
	require.NoError(t, b.Reset())
	assert.True(t, b.Allow())
}
