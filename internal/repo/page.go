// Package repo provides the reactive data repositories every library feature
// builds on: typed caches that fetch remote collections, page through them,
// track freshness and broadcast loading, error and item changes to observers.
package repo

import "context"

// Cursor identifies where the next page of a remote collection begins.
// The empty cursor requests the first page.
type Cursor = string

// NoCursor requests the first page.
const NoCursor Cursor = ""

// Order is the paging order passed to page getters.
type Order int

const (
	OrderDesc Order = iota // newest first
	OrderAsc               // oldest first
)

func (o Order) String() string {
	switch o {
	case OrderDesc:
		return "desc"
	case OrderAsc:
		return "asc"
	default:
		return "unknown"
	}
}

// DataPage is one fetched page of a remote collection.
// NextCursor is meaningless when IsLast is set.
type DataPage[T any] struct {
	Items      []T
	NextCursor Cursor
	IsLast     bool
}

// next returns the cursor of the following page, or ErrMissingCursor
// when a non-last page carries no cursor.
func (p DataPage[T]) next() (Cursor, error) {
	if !p.IsLast && p.NextCursor == NoCursor {
		return NoCursor, ErrMissingCursor
	}
	return p.NextCursor, nil
}

// PageFetcher fetches the page starting at cursor.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, cursor Cursor) (DataPage[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, cursor Cursor) (DataPage[T], error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, cursor Cursor) (DataPage[T], error) {
	return f(ctx, cursor)
}

// PageRequest describes one page requested by a PagedRepository.
type PageRequest struct {
	Limit  int
	Cursor Cursor
	Order  Order
}

// IsFirst reports whether the request is for the first page.
func (r PageRequest) IsFirst() bool { return r.Cursor == NoCursor }

// PageGetter fetches pages for a PagedRepository.
type PageGetter[T any] interface {
	GetPage(ctx context.Context, req PageRequest) (DataPage[T], error)
}

// PageGetterFunc adapts a function to PageGetter.
type PageGetterFunc[T any] func(ctx context.Context, req PageRequest) (DataPage[T], error)

// GetPage implements PageGetter.
func (f PageGetterFunc[T]) GetPage(ctx context.Context, req PageRequest) (DataPage[T], error) {
	return f(ctx, req)
}

// CollectionFetcher fetches a whole collection for a CollectionRepository.
type CollectionFetcher[T any] interface {
	FetchCollection(ctx context.Context) ([]T, error)
}

// CollectionFetcherFunc adapts a function to CollectionFetcher.
type CollectionFetcherFunc[T any] func(ctx context.Context) ([]T, error)

// FetchCollection implements CollectionFetcher.
func (f CollectionFetcherFunc[T]) FetchCollection(ctx context.Context) ([]T, error) {
	return f(ctx)
}

// ItemFetcher fetches the single object cached by a SingleItemRepository.
type ItemFetcher[T any] interface {
	FetchItem(ctx context.Context) (T, error)
}

// ItemFetcherFunc adapts a function to ItemFetcher.
type ItemFetcherFunc[T any] func(ctx context.Context) (T, error)

// FetchItem implements ItemFetcher.
func (f ItemFetcherFunc[T]) FetchItem(ctx context.Context) (T, error) {
	return f(ctx)
}
