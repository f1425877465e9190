package repo

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Name  string
	Quota int
}

func TestSingleItemUpdate(t *testing.T) {
	var quota atomic.Int32
	r := NewSingleItemRepository("account", ItemFetcherFunc[account](func(context.Context) (account, error) {
		return account{Name: "me", Quota: int(quota.Add(1))}, nil
	}), noDebounce)
	defer r.Close()

	_, ok := r.Current()
	assert.False(t, ok)

	item := r.Item()
	defer item.Close()
	requireNothing(t, item, 0)

	require.NoError(t, wait(t, r.Update()))
	assert.Equal(t, account{Name: "me", Quota: 1}, receive(t, item))

	require.NoError(t, wait(t, r.Update()))
	got, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, 2, got.Quota)
}

func TestSingleItemFailureKeepsItem(t *testing.T) {
	var fail atomic.Bool
	r := NewSingleItemRepository("account", ItemFetcherFunc[account](func(context.Context) (account, error) {
		if fail.Load() {
			return account{}, errFetch
		}
		return account{Name: "me"}, nil
	}), noDebounce)
	defer r.Close()

	require.NoError(t, wait(t, r.Update()))

	errs := r.Errors()
	defer errs.Close()
	fail.Store(true)
	require.ErrorIs(t, wait(t, r.Update()), errFetch)

	got, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "me", got.Name)
	assert.False(t, r.IsLoading())
	assert.True(t, r.IsFresh(), "a failure does not touch freshness")
	assert.ErrorIs(t, receive(t, errs), errFetch)
}

func TestSingleItemCoalescesUpdates(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	r := NewSingleItemRepository("account", ItemFetcherFunc[account](func(ctx context.Context) (account, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return account{Name: "stale"}, nil
		}
		return account{Name: "newest"}, nil
	}), noDebounce)
	defer r.Close()

	h1 := r.Update()
	<-started
	h2 := r.Update()

	require.NoError(t, wait(t, h1))
	require.NoError(t, wait(t, h2))
	got, _ := r.Current()
	assert.Equal(t, "newest", got.Name)
}
