//go:build unix

// Package vmem provides platform-specific helpers for reserving, committing
// and mapping anonymous virtual memory.
package vmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserve reserves size bytes of address space with no access rights.
// Nothing is backed by physical memory until Commit is called on a range.
func Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", size, err)
	}
	return data, nil
}

// Commit makes b readable and writable. b must start on a page boundary
// inside a range returned by Reserve.
func Commit(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("vmem: commit %d bytes: %w", len(b), err)
	}
	return nil
}

// MapAnon maps n zero-filled read-write bytes that belong to no file.
func MapAnon(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("vmem: map %d bytes: %w", n, err)
	}
	return data, nil
}

// Release unmaps a slice previously returned by Reserve or MapAnon.
func Release(b []byte) error {
	if b == nil {
		return nil
	}
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

// PageSize returns the operating system's memory page size.
func PageSize() int {
	return unix.Getpagesize()
}

// Supported reports whether Reserve and Commit are available.
func Supported() bool { return true }
