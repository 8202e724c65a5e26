package vmem

import "errors"

var (
	// ErrInvalidSize is returned for non-positive reservation or mapping sizes.
	ErrInvalidSize = errors.New("vmem: invalid size")
	// ErrUnsupported is returned when the platform has no mmap.
	ErrUnsupported = errors.New("vmem: not supported on this platform")
)
