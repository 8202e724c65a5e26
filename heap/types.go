package heap

// Allocator is the public surface shared by Heap and Locked.
type Allocator interface {
	// Alloc returns a pointer to at least size bytes.
	Alloc(size int) (Ptr, error)

	// Calloc returns a pointer to count*size zeroed bytes.
	Calloc(count, size int) (Ptr, error)

	// Realloc resizes p, possibly moving it.
	Realloc(p Ptr, size int) (Ptr, error)

	// Free releases p. Nil and double frees are ignored.
	Free(p Ptr) error

	// Bytes returns the payload of a live block.
	Bytes(p Ptr) ([]byte, error)
}

var (
	_ Allocator = (*Heap)(nil)
	_ Allocator = (*Locked)(nil)
)
