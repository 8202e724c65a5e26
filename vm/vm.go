package vm

// Arena is a contiguous region grown at its end.
type Arena interface {
	// Bytes returns the arena from offset 0 up to the current break.
	// The returned slice must be re-fetched after Extend.
	Bytes() []byte

	// Extend moves the break up by n bytes and returns the previous break,
	// which is the offset of the first new byte.
	Extend(n int) (int, error)
}

// Mapper hands out independent anonymous regions.
type Mapper interface {
	// Map returns n zero-filled writable bytes.
	Map(n int) ([]byte, error)

	// Unmap releases a region returned by Map.
	Unmap(b []byte) error
}

// Provider is everything the heap needs from the operating environment.
type Provider interface {
	Arena
	Mapper

	// PageSize returns the platform memory page size.
	PageSize() int

	// Close releases the arena and every outstanding mapping.
	Close() error
}
