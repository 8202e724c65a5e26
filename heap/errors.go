package heap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize indicates a non-positive or overflowing size or count.
	ErrInvalidSize = errors.New("heap: invalid size")

	// ErrNotAllocated indicates Realloc was given a block that is already free.
	ErrNotAllocated = errors.New("heap: block not allocated")

	// ErrBadPointer indicates a Ptr that does not address a block header.
	ErrBadPointer = errors.New("heap: bad pointer")

	// ErrProviderFailure matches every *ProviderError.
	ErrProviderFailure = errors.New("heap: provider failure")

	// ErrCorrupt indicates Verify found a broken list invariant.
	ErrCorrupt = errors.New("heap: corrupt block list")

	errArenaMoved       = errors.New("arena break moved outside the allocator")
	errRegionsExhausted = errors.New("no free mapping ids")
)

// ProviderError describes a failed arena extension, mapping or unmapping.
type ProviderError struct {
	Op   string // "extend", "map" or "unmap"
	Size int
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("heap: %s %d bytes: %v", e.Op, e.Size, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports ErrProviderFailure as a match.
func (e *ProviderError) Is(target error) bool { return target == ErrProviderFailure }
