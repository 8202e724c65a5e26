package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadStatus indicates a header carried a status outside the known set.
	ErrBadStatus = errors.New("format: unknown block status")
)
