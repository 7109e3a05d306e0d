package announce

import "errors"

var (
	// ErrClosed is returned for requests that were still queued when the
	// announcer closed, and for requests enqueued afterwards.
	ErrClosed = errors.New("announce: announcer closed")

	// ErrEmptyText is returned for blank announcements.
	ErrEmptyText = errors.New("announce: empty text")
)
