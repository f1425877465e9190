package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterSpendsBurst(t *testing.T) {
	l := NewLimiter(NewStore(t.TempDir()), "photos.local", LimiterConfig{Burst: 3, PerSecond: 0.001})
	for range 3 {
		ok, _ := l.Allow()
		require.True(t, ok)
	}
	ok, wait := l.Allow()
	assert.False(t, ok)
	assert.Positive(t, wait)
}

func TestLimiterRefills(t *testing.T) {
	l := NewLimiter(NewStore(t.TempDir()), "photos.local", LimiterConfig{Burst: 1, PerSecond: 100})
	ok, _ := l.Allow()
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)
	ok, _ = l.Allow()
	assert.True(t, ok)
}

func TestLimiterBlock(t *testing.T) {
	l := NewLimiter(NewStore(t.TempDir()), "photos.local", LimiterConfig{})
	require.NoError(t, l.Block(time.Minute))

	ok, wait := l.Allow()
	assert.False(t, ok)
	assert.Greater(t, wait, 50*time.Second)

	require.NoError(t, l.Block(time.Second), "shorter block does not shorten")
	_, wait = l.Allow()
	assert.Greater(t, wait, 50*time.Second)

	require.NoError(t, l.Reset())
	ok, _ = l.Allow()
	assert.True(t, ok)
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, NewLimiter(store, "a", LimiterConfig{}).Block(time.Minute))
	ok, _ := NewLimiter(store, "b", LimiterConfig{}).Allow()
	assert.True(t, ok)
}

func TestLimiterTokens(t *testing.T) {
	l := NewLimiter(NewStore(t.TempDir()), "photos.local", LimiterConfig{Burst: 5, PerSecond: 0.001})
	tokens, err := l.Tokens()
	require.NoError(t, err)
	assert.InDelta(t, 5, tokens, 0.01)
}
