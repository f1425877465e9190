package repo

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingRepo(ctx context.Context, name string, calls *atomic.Int32) *CollectionRepository[int] {
	return NewCollectionRepository(name, CollectionFetcherFunc[int](func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1}, nil
	}), noDebounce, WithContext(ctx))
}

func TestRealmRegisterAndGet(t *testing.T) {
	realm := NewRealm("library", context.Background())
	defer realm.Teardown()

	var calls atomic.Int32
	albums := countingRepo(realm.Context(), "albums", &calls)
	realm.Register("albums", albums)

	assert.Same(t, albums, realm.Get("albums"))
	assert.Nil(t, realm.Get("missing"))
	assert.Equal(t, []string{"albums"}, realm.Keys())
}

func TestRealmRegisterReplacesAndClosesPrevious(t *testing.T) {
	realm := NewRealm("library", context.Background())
	defer realm.Teardown()

	var calls atomic.Int32
	old := countingRepo(realm.Context(), "albums", &calls)
	realm.Register("albums", old)
	realm.Register("albums", countingRepo(realm.Context(), "albums", &calls))

	assert.ErrorIs(t, wait(t, old.Update()), ErrClosed)
}

func TestRealmRepositoryGetOrCreate(t *testing.T) {
	realm := NewRealm("library", context.Background())
	defer realm.Teardown()

	var created atomic.Int32
	create := func(ctx context.Context) *CollectionRepository[int] {
		created.Add(1)
		var calls atomic.Int32
		return countingRepo(ctx, "labels", &calls)
	}

	a := RealmRepository(realm, "labels", create)
	b := RealmRepository(realm, "labels", create)
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), created.Load())

	assert.Panics(t, func() {
		RealmRepository(realm, "labels", func(ctx context.Context) *SingleItemRepository[int] {
			return nil
		})
	})
}

func TestRealmUpdateIfEverUpdated(t *testing.T) {
	realm := NewRealm("library", context.Background())
	defer realm.Teardown()

	var usedCalls, idleCalls atomic.Int32
	used := countingRepo(realm.Context(), "used", &usedCalls)
	idle := countingRepo(realm.Context(), "idle", &idleCalls)
	realm.Register("used", used)
	realm.Register("idle", idle)

	require.NoError(t, wait(t, used.Update()))
	require.NoError(t, wait(t, realm.UpdateIfEverUpdated()))

	assert.Equal(t, int32(2), usedCalls.Load())
	assert.Zero(t, idleCalls.Load())
}

func TestRealmInvalidateAndStatuses(t *testing.T) {
	realm := NewRealm("library", context.Background())
	defer realm.Teardown()

	var calls atomic.Int32
	b := countingRepo(realm.Context(), "b", &calls)
	a := countingRepo(realm.Context(), "a", &calls)
	realm.Register("b", b)
	realm.Register("a", a)

	require.NoError(t, wait(t, realm.UpdateIfNotFresh()))
	assert.True(t, a.IsFresh())

	realm.Invalidate()
	statuses := realm.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Name)
	assert.Equal(t, "b", statuses[1].Name)
	assert.Equal(t, StateStale, statuses[0].State)
}

func TestRealmTeardown(t *testing.T) {
	realm := NewRealm("library", context.Background())

	var calls atomic.Int32
	albums := countingRepo(realm.Context(), "albums", &calls)
	realm.Register("albums", albums)
	realm.Teardown()

	assert.Error(t, realm.Context().Err())
	assert.Nil(t, realm.Get("albums"))
	assert.ErrorIs(t, wait(t, albums.Update()), ErrClosed)
}

func TestRealmTeardownFailsInFlightFetchWithErrClosed(t *testing.T) {
	realm := NewRealm("library", context.Background())
	started := make(chan struct{})
	r := NewCollectionRepository("albums", CollectionFetcherFunc[int](func(ctx context.Context) ([]int, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}), noDebounce, WithContext(realm.Context()))
	realm.Register("albums", r)

	errs := r.Errors()
	defer errs.Close()
	h := r.Update()
	<-started
	realm.Teardown()

	assert.ErrorIs(t, wait(t, h), ErrClosed)
	requireNothing(t, errs, 20*time.Millisecond)
}

func TestKeyedCreatesOnDemand(t *testing.T) {
	var created atomic.Int32
	keyed := NewKeyed(func(query string) *CollectionRepository[int] {
		created.Add(1)
		var calls atomic.Int32
		return countingRepo(context.Background(), "gallery:"+query, &calls)
	})
	defer keyed.Close()

	assert.False(t, keyed.Has("cats"))
	cats := keyed.Get("cats")
	assert.Same(t, cats, keyed.Get("cats"))
	keyed.Get("dogs")

	assert.True(t, keyed.Has("cats"))
	assert.Equal(t, 2, keyed.Len())
	assert.Equal(t, int32(2), created.Load())

	require.NoError(t, wait(t, cats.Update()))
	keyed.Invalidate()
	assert.False(t, cats.IsFresh())

	keyed.Close()
	assert.Zero(t, keyed.Len())
	assert.ErrorIs(t, wait(t, cats.Update()), ErrClosed)
}
