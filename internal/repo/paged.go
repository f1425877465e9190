package repo

import (
	"context"
	"slices"
	"sync/atomic"
)

// PagedRepository accumulates a remote collection page by page, on demand.
type PagedRepository[T any] struct {
	*core
	getter PageGetter[T]
	limit  int
	order  Order
	items  *Latest[[]T]

	noMoreItems atomic.Bool
	firstPage   atomic.Bool

	// Owned by the run goroutine.
	list   []T
	cursor Cursor
}

// NewPagedRepository creates a repository requesting pages of limit items
// in the given order. Close it when done.
func NewPagedRepository[T any](name string, getter PageGetter[T], limit int, order Order, opts ...Option) *PagedRepository[T] {
	r := &PagedRepository[T]{
		getter: getter,
		limit:  limit,
		order:  order,
		items:  NewLatestWith([]T{}),
	}
	r.firstPage.Store(true)
	r.core = newCore(name, buildOptions(opts))
	r.core.updateFn = r.update
	return r
}

// Items subscribes to all loaded items, replaying the latest list.
func (r *PagedRepository[T]) Items() *Subscription[[]T] {
	return r.items.Subscribe()
}

// ItemsList returns all loaded items.
func (r *PagedRepository[T]) ItemsList() []T {
	items, _ := r.items.Value()
	return slices.Clone(items)
}

// NoMoreItems reports whether the last loaded page was the last one.
func (r *PagedRepository[T]) NoMoreItems() bool { return r.noMoreItems.Load() }

// IsOnFirstPage reports whether nothing has advanced the cursor yet.
func (r *PagedRepository[T]) IsOnFirstPage() bool { return r.firstPage.Load() }

// PageLimit returns the requested page size.
func (r *PagedRepository[T]) PageLimit() int { return r.limit }

// Order returns the paging order.
func (r *PagedRepository[T]) Order() Order { return r.order }

// LoadMore requests the next page unless every page is loaded or a fetch
// is in flight. It reports whether a fetch was started.
func (r *PagedRepository[T]) LoadMore() bool {
	var started bool
	_ = r.call(func() { started = r.loadMore(false, nil) })
	return started
}

func (r *PagedRepository[T]) update() *Handle {
	r.list = nil
	r.setCursor(NoCursor)
	r.noMoreItems.Store(false)
	r.setLoading(false)

	h := r.sharedHandle()
	r.loadMore(true, h)
	return h
}

func (r *PagedRepository[T]) loadMore(force bool, h *Handle) bool {
	if (r.noMoreItems.Load() || r.loading.Load()) && !force {
		return false
	}

	r.setLoading(true)
	req := PageRequest{Limit: r.limit, Cursor: r.cursor, Order: r.order}
	r.launch(func(ctx context.Context) func() error {
		page, err := r.getter.GetPage(ctx, req)
		return func() error {
			if err == nil {
				_, err = page.next()
			}
			if err != nil {
				return r.fail(h, err)
			}
			r.onNewPage(page)
			r.setLoading(false)
			r.settle(h, nil)
			return nil
		}
	})
	return true
}

func (r *PagedRepository[T]) onNewPage(page DataPage[T]) {
	r.markUpdated()
	r.noMoreItems.Store(page.IsLast)
	r.setCursor(page.NextCursor)
	r.list = append(r.list, page.Items...)
	r.items.Publish(slices.Clone(r.list))
}

func (r *PagedRepository[T]) setCursor(c Cursor) {
	r.cursor = c
	r.firstPage.Store(c == NoCursor)
}
