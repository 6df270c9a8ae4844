package batch

import "errors"

// Errors returned through futures. Check them with errors.Is.
var (
	// ErrClosed is returned for queries registered after Close.
	ErrClosed = errors.New("batch: batcher closed")

	// ErrSuperseded rejects a future whose handle was registered again
	// before the flush.
	ErrSuperseded = errors.New("batch: query superseded by a newer registration")

	// ErrInvalidQuery is returned for a query without a path or with a zero handle.
	ErrInvalidQuery = errors.New("batch: invalid query")

	// ErrMissingKey is returned when a merged response has no member for
	// the caller's batch value.
	ErrMissingKey = errors.New("batch: merged response has no entry for key")

	// ErrMissingSelection is returned when Query.Select matches nothing.
	ErrMissingSelection = errors.New("batch: response has no value at path")
)
