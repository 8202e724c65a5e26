package trace

import "errors"

var (
	// ErrSyntax indicates a malformed script line.
	ErrSyntax = errors.New("trace: syntax error")

	// ErrUnknownName indicates a name used before it was bound.
	ErrUnknownName = errors.New("trace: unknown name")

	// ErrCheckFailed indicates a check op found an unexpected byte.
	ErrCheckFailed = errors.New("trace: check failed")

	// ErrOverlap indicates two live payloads share memory.
	ErrOverlap = errors.New("trace: overlapping payloads")

	// ErrNoVerifier indicates Options.Verify was set for an allocator
	// without a Verify method.
	ErrNoVerifier = errors.New("trace: allocator cannot verify")
)
