//go:build !unix

// Package vmem provides platform-specific helpers for reserving, committing
// and mapping anonymous virtual memory.
package vmem

import "os"

// Reserve is not available without mmap.
func Reserve(size int) ([]byte, error) {
	return nil, ErrUnsupported
}

// Commit is not available without mmap.
func Commit(b []byte) error {
	return ErrUnsupported
}

// MapAnon returns a zeroed Go allocation when mmap is not available.
func MapAnon(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	return make([]byte, n), nil
}

// Release is a no-op; the garbage collector reclaims MapAnon buffers.
func Release(b []byte) error { return nil }

// PageSize returns the operating system's memory page size.
func PageSize() int {
	return os.Getpagesize()
}

// Supported reports whether Reserve and Commit are available.
func Supported() bool { return false }
