package resilience

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StateVersion, state.Version)
	assert.Empty(t, state.Hosts)
}

func TestStoreUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Update("photos.local", func(h *HostState, _ time.Time) error {
		h.Breaker.Failures = 3
		return nil
	}))

	state, err := NewStore(dir).Load()
	require.NoError(t, err)
	require.Contains(t, state.Hosts, "photos.local")
	assert.Equal(t, 3, state.Hosts["photos.local"].Breaker.Failures)
	assert.NotContains(t, state.Hosts, "other.local")
}

func TestStoreUpdateErrorLeavesStateAlone(t *testing.T) {
	store := NewStore(t.TempDir())
	boom := errors.New("boom")
	err := store.Update("photos.local", func(h *HostState, _ time.Time) error {
		h.Breaker.Failures = 9
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestStoreCorruptFileReadsEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Clear())
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Hosts)
}

func TestStoreClear(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Update("h", func(*HostState, time.Time) error { return nil }))
	require.FileExists(t, store.Path())

	require.NoError(t, store.Clear())
	assert.NoFileExists(t, store.Path())
	require.NoError(t, store.Clear())
}

func TestDefaultDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	assert.Equal(t, "/tmp/xdg-cache/prismctl", DefaultDir())
}
