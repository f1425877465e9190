package repo

import "context"

// SingleItemRepository caches one remote object, replaced wholesale on
// every successful update.
type SingleItemRepository[T any] struct {
	*core
	fetcher ItemFetcher[T]
	item    *Latest[T]
}

// NewSingleItemRepository creates a repository over fetcher. Close it when done.
func NewSingleItemRepository[T any](name string, fetcher ItemFetcher[T], opts ...Option) *SingleItemRepository[T] {
	r := &SingleItemRepository[T]{
		fetcher: fetcher,
		item:    NewLatest[T](),
	}
	r.core = newCore(name, buildOptions(opts))
	r.core.updateFn = r.update
	return r
}

// Item subscribes to the cached object. Nothing is delivered before the
// first successful update.
func (r *SingleItemRepository[T]) Item() *Subscription[T] {
	return r.item.Subscribe()
}

// Current returns the cached object and whether there is one.
func (r *SingleItemRepository[T]) Current() (T, bool) {
	return r.item.Value()
}

func (r *SingleItemRepository[T]) update() *Handle {
	h := r.sharedHandle()
	r.setLoading(true)
	r.launch(func(ctx context.Context) func() error {
		item, err := r.fetcher.FetchItem(ctx)
		return func() error {
			if err != nil {
				return r.fail(h, err)
			}
			r.markUpdated()
			r.setLoading(false)
			r.item.Publish(item)
			r.settle(h, nil)
			return nil
		}
	})
	return h
}
