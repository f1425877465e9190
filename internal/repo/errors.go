package repo

import "errors"

var (
	// ErrClosed is returned by every entry point of a closed repository.
	ErrClosed = errors.New("repository closed")

	// ErrMissingCursor reports a page that is not the last one but carries no cursor.
	ErrMissingCursor = errors.New("page is not last but has no next cursor")

	// ErrTooManyPages reports a collection that did not end within the page cap.
	ErrTooManyPages = errors.New("too many pages")
)
