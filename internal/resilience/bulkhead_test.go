package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkheadCapsPermits(t *testing.T) {
	b := NewBulkhead(NewStore(t.TempDir()), "photos.local", BulkheadConfig{MaxConcurrent: 2})

	r1, ok := b.Acquire()
	require.True(t, ok)
	r2, ok := b.Acquire()
	require.True(t, ok)
	_, ok = b.Acquire()
	assert.False(t, ok)

	inUse, err := b.InUse()
	require.NoError(t, err)
	assert.Equal(t, 2, inUse)

	r1()
	r3, ok := b.Acquire()
	assert.True(t, ok)
	r2()
	r3()

	inUse, _ = b.InUse()
	assert.Zero(t, inUse)
}

func TestBulkheadReclaimsDeadHolders(t *testing.T) {
	b := NewBulkhead(NewStore(t.TempDir()), "photos.local", BulkheadConfig{MaxConcurrent: 1})
	_, ok := b.Acquire()
	require.True(t, ok)

	b.alive = func(int) bool { return false }
	release, ok := b.Acquire()
	assert.True(t, ok, "permit of a dead process is reclaimed")
	release()
}
