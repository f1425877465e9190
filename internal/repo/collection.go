package repo

import (
	"context"
	"slices"
)

// CollectionRepository caches a remote collection that is fetched and
// replaced as a whole on every update.
type CollectionRepository[T any] struct {
	*core
	fetcher CollectionFetcher[T]
	items   *Latest[[]T]
}

// NewCollectionRepository creates a repository over fetcher. Close it when done.
func NewCollectionRepository[T any](name string, fetcher CollectionFetcher[T], opts ...Option) *CollectionRepository[T] {
	r := &CollectionRepository[T]{
		fetcher: fetcher,
		items:   NewLatestWith([]T{}),
	}
	r.core = newCore(name, buildOptions(opts))
	r.core.updateFn = r.update
	return r
}

// Items subscribes to the collection, replaying the latest one.
func (r *CollectionRepository[T]) Items() *Subscription[[]T] {
	return r.items.Subscribe()
}

// ItemsList returns the cached collection.
func (r *CollectionRepository[T]) ItemsList() []T {
	items, _ := r.items.Value()
	return slices.Clone(items)
}

// Mutate edits the cached collection in place of a refetch, for instance
// after a successful remote create. Freshness is not affected.
func (r *CollectionRepository[T]) Mutate(fn func(items []T) []T) error {
	return r.call(func() {
		items, _ := r.items.Value()
		r.items.Publish(fn(slices.Clone(items)))
	})
}

func (r *CollectionRepository[T]) update() *Handle {
	h := r.sharedHandle()
	r.setLoading(true)
	r.launch(func(ctx context.Context) func() error {
		items, err := r.fetcher.FetchCollection(ctx)
		return func() error {
			if err != nil {
				return r.fail(h, err)
			}
			if items == nil {
				items = []T{}
			}
			r.markUpdated()
			r.setLoading(false)
			r.items.Publish(items)
			r.settle(h, nil)
			return nil
		}
	})
	return h
}
