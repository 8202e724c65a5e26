package vm

import (
	"fmt"
	"math"
	"os"
)

// maxSlice bounds a single arena or mapping. Larger lengths make the
// runtime panic in make instead of failing.
const maxSlice = min(1<<47, math.MaxInt)

// MemoryOptions configures a Memory provider. Zero values mean unlimited.
type MemoryOptions struct {
	// ArenaLimit caps the arena break. Extend past it fails with ErrArenaExhausted.
	ArenaLimit int

	// MapLimit caps the total bytes of live mappings. Map past it fails with ErrMapLimit.
	MapLimit int

	// PageSize overrides the reported page size (default: os.Getpagesize()).
	PageSize int
}

// Memory is a Provider that lives entirely in the Go heap.
// The arena's backing array moves when it outgrows its capacity, which is
// fine for callers that address the arena by offset.
type Memory struct {
	data   []byte
	opts   MemoryOptions
	mapped int
	live   map[*byte]int
	closed bool
}

// NewMemory returns an in-process provider.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.PageSize <= 0 {
		opts.PageSize = os.Getpagesize()
	}
	return &Memory{
		opts: opts,
		live: make(map[*byte]int),
	}
}

// Bytes returns the arena up to the break.
func (m *Memory) Bytes() []byte { return m.data }

// Extend grows the arena by n zeroed bytes.
func (m *Memory) Extend(n int) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if n <= 0 {
		return 0, ErrInvalidSize
	}
	prev := len(m.data)
	if n > maxSlice-prev {
		return 0, fmt.Errorf("%w: break=%d grow=%d max=%d", ErrArenaExhausted, prev, n, int64(maxSlice))
	}
	if m.opts.ArenaLimit > 0 && n > m.opts.ArenaLimit-prev {
		return 0, fmt.Errorf("%w: break=%d grow=%d limit=%d", ErrArenaExhausted, prev, n, m.opts.ArenaLimit)
	}

	newLen := prev + n
	if newLen > cap(m.data) {
		newCap := max(2*cap(m.data), newLen)
		if m.opts.ArenaLimit > 0 {
			newCap = min(newCap, m.opts.ArenaLimit)
		}
		grown := make([]byte, newLen, newCap)
		copy(grown, m.data)
		m.data = grown
	} else {
		m.data = m.data[:newLen]
	}

	return prev, nil
}

// Map returns n zeroed bytes tracked as a live mapping.
func (m *Memory) Map(n int) ([]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	if n > maxSlice {
		return nil, fmt.Errorf("%w: request=%d max=%d", ErrMapLimit, n, int64(maxSlice))
	}
	if m.opts.MapLimit > 0 && n > m.opts.MapLimit-m.mapped {
		return nil, fmt.Errorf("%w: mapped=%d request=%d limit=%d", ErrMapLimit, m.mapped, n, m.opts.MapLimit)
	}
	b := make([]byte, n)
	m.live[&b[0]] = n
	m.mapped += n
	return b, nil
}

// Unmap forgets a mapping returned by Map.
func (m *Memory) Unmap(b []byte) error {
	if m.closed {
		return ErrClosed
	}
	if len(b) == 0 {
		return ErrNotMapped
	}
	n, ok := m.live[&b[0]]
	if !ok {
		return ErrNotMapped
	}
	delete(m.live, &b[0])
	m.mapped -= n
	return nil
}

// PageSize returns the configured page size.
func (m *Memory) PageSize() int { return m.opts.PageSize }

// Mappings returns the number of live mappings.
func (m *Memory) Mappings() int { return len(m.live) }

// MappedBytes returns the total size of live mappings.
func (m *Memory) MappedBytes() int { return m.mapped }

// Close drops the arena and all mappings. It is idempotent.
func (m *Memory) Close() error {
	m.closed = true
	m.data = nil
	m.live = nil
	m.mapped = 0
	return nil
}
