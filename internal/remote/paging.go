package remote

import (
	"context"
	"fmt"
	"strconv"

	"github.com/basecamp/prismctl/internal/repo"
)

// Offset decodes an offset cursor. The empty cursor is offset zero.
func Offset(cursor repo.Cursor) (int, error) {
	if cursor == repo.NoCursor {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid offset cursor %q", cursor)
	}
	return n, nil
}

// OffsetPage wraps count-limited results requested at offset. A short page
// is the last one.
func OffsetPage[T any](items []T, offset, count int) repo.DataPage[T] {
	return repo.DataPage[T]{
		Items:      items,
		NextCursor: strconv.Itoa(offset + count),
		IsLast:     len(items) < count,
	}
}

// OffsetFetcher adapts an offset-paged endpoint to a page fetcher for the
// collection loader.
func OffsetFetcher[T any](count int, fetch func(ctx context.Context, count, offset int) ([]T, error)) repo.PageFetcher[T] {
	return repo.PageFetcherFunc[T](func(ctx context.Context, cursor repo.Cursor) (repo.DataPage[T], error) {
		offset, err := Offset(cursor)
		if err != nil {
			return repo.DataPage[T]{}, err
		}
		items, err := fetch(ctx, count, offset)
		if err != nil {
			return repo.DataPage[T]{}, err
		}
		return OffsetPage(items, offset, count), nil
	})
}
