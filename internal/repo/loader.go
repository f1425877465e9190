package repo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// PagedCollectionLoader materializes a whole paged collection by requesting
// pages one after another until a page reports itself last.
type PagedCollectionLoader[T any] struct {
	fetcher     PageFetcher[T]
	startCursor Cursor
	distinct    func(T) string
	limiter     *rate.Limiter
	maxPages    int
	logger      zerolog.Logger
}

// LoaderOption configures a PagedCollectionLoader.
type LoaderOption[T any] func(*PagedCollectionLoader[T])

// WithStartCursor starts loading from cursor instead of the first page.
func WithStartCursor[T any](cursor Cursor) LoaderOption[T] {
	return func(l *PagedCollectionLoader[T]) { l.startCursor = cursor }
}

// WithDistinct drops items whose key has already been collected.
// Useful for mutable collections paged by offset, where an insertion
// shifts items into the next page.
func WithDistinct[T any](key func(T) string) LoaderOption[T] {
	return func(l *PagedCollectionLoader[T]) { l.distinct = key }
}

// WithPageLimiter paces page requests through limiter.
func WithPageLimiter[T any](limiter *rate.Limiter) LoaderOption[T] {
	return func(l *PagedCollectionLoader[T]) { l.limiter = limiter }
}

// WithMaxPages fails the load with ErrTooManyPages after n pages.
func WithMaxPages[T any](n int) LoaderOption[T] {
	return func(l *PagedCollectionLoader[T]) { l.maxPages = n }
}

// WithLoaderLogger logs every loaded page at debug level.
func WithLoaderLogger[T any](logger zerolog.Logger) LoaderOption[T] {
	return func(l *PagedCollectionLoader[T]) { l.logger = logger }
}

// NewPagedCollectionLoader creates a loader over fetcher.
func NewPagedCollectionLoader[T any](fetcher PageFetcher[T], opts ...LoaderOption[T]) *PagedCollectionLoader[T] {
	l := &PagedCollectionLoader[T]{
		fetcher: fetcher,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll fetches every page and returns all items in page order.
// Pages are requested strictly sequentially. Any failure aborts the load
// and nothing collected so far is returned.
func (l *PagedCollectionLoader[T]) LoadAll(ctx context.Context) ([]T, error) {
	var (
		items  []T
		seen   map[string]struct{}
		cursor = l.startCursor
	)
	if l.distinct != nil {
		seen = make(map[string]struct{})
	}

	for pages := 1; ; pages++ {
		if l.maxPages > 0 && pages > l.maxPages {
			return nil, fmt.Errorf("loading beyond %d pages: %w", l.maxPages, ErrTooManyPages)
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		page, err := l.fetcher.FetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		l.logger.Debug().
			Str("cursor", cursor).
			Int("items", len(page.Items)).
			Bool("last", page.IsLast).
			Msg("page loaded")

		for _, item := range page.Items {
			if seen != nil {
				key := l.distinct(item)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			items = append(items, item)
		}

		if page.IsLast {
			break
		}
		next, err := page.next()
		if err != nil {
			return nil, fmt.Errorf("page at cursor %q: %w", cursor, err)
		}
		cursor = next
	}

	if items == nil {
		items = []T{}
	}
	return items, nil
}
