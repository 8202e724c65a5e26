package vm

import "errors"

var (
	// ErrArenaExhausted indicates the arena cannot grow by the requested amount.
	ErrArenaExhausted = errors.New("vm: arena exhausted")

	// ErrMapLimit indicates a mapping would exceed the configured mapping budget.
	ErrMapLimit = errors.New("vm: mapping limit reached")

	// ErrNotMapped indicates Unmap was given a region this provider did not map.
	ErrNotMapped = errors.New("vm: region not mapped")

	// ErrClosed indicates the provider has been closed.
	ErrClosed = errors.New("vm: provider closed")

	// ErrInvalidSize indicates a non-positive extension or mapping size.
	ErrInvalidSize = errors.New("vm: invalid size")
)
