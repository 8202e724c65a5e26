package vm

import (
	"fmt"

	"github.com/joshuapare/osmem/internal/format"
	"github.com/joshuapare/osmem/internal/vmem"
)

// DefaultReserve is the address space NewOS reserves when given 0.
const DefaultReserve = 1 << 30

// OS is a Provider backed by real virtual memory.
type OS struct {
	reserved  []byte
	brk       int
	committed int
	pageSize  int
	live      map[*byte][]byte
	closed    bool
}

// NewOS reserves reserve bytes of address space for the arena. The arena can
// never grow past the reservation; Extend returns ErrArenaExhausted instead.
func NewOS(reserve int) (*OS, error) {
	if !vmem.Supported() {
		return nil, vmem.ErrUnsupported
	}
	if reserve <= 0 {
		reserve = DefaultReserve
	}
	ps := vmem.PageSize()
	reserve = format.AlignPage(reserve, ps)

	data, err := vmem.Reserve(reserve)
	if err != nil {
		return nil, err
	}
	return &OS{
		reserved: data,
		pageSize: ps,
		live:     make(map[*byte][]byte),
	}, nil
}

// Bytes returns the committed arena up to the break.
func (o *OS) Bytes() []byte {
	if o.closed {
		return nil
	}
	return o.reserved[:o.brk]
}

// Extend commits whole pages as needed and moves the break by n bytes.
func (o *OS) Extend(n int) (int, error) {
	if o.closed {
		return 0, ErrClosed
	}
	if n <= 0 {
		return 0, ErrInvalidSize
	}
	if n > len(o.reserved)-o.brk {
		return 0, fmt.Errorf("%w: break=%d grow=%d reserve=%d", ErrArenaExhausted, o.brk, n, len(o.reserved))
	}

	need := format.AlignPage(o.brk+n, o.pageSize)
	if need > len(o.reserved) {
		need = len(o.reserved)
	}
	if need > o.committed {
		if err := vmem.Commit(o.reserved[o.committed:need]); err != nil {
			return 0, err
		}
		o.committed = need
	}

	prev := o.brk
	o.brk += n
	return prev, nil
}

// Map returns a fresh anonymous mapping of n bytes.
func (o *OS) Map(n int) ([]byte, error) {
	if o.closed {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	b, err := vmem.MapAnon(n)
	if err != nil {
		return nil, err
	}
	o.live[&b[0]] = b
	return b, nil
}

// Unmap releases a mapping returned by Map.
func (o *OS) Unmap(b []byte) error {
	if o.closed {
		return ErrClosed
	}
	if len(b) == 0 {
		return ErrNotMapped
	}
	if _, ok := o.live[&b[0]]; !ok {
		return ErrNotMapped
	}
	if err := vmem.Release(b); err != nil {
		return err
	}
	delete(o.live, &b[0])
	return nil
}

// PageSize returns the platform page size.
func (o *OS) PageSize() int { return o.pageSize }

// Mappings returns the number of live mappings.
func (o *OS) Mappings() int { return len(o.live) }

// Close releases the arena reservation and every live mapping.
// It is idempotent.
func (o *OS) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	var firstErr error
	for _, b := range o.live {
		if err := vmem.Release(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := vmem.Release(o.reserved); err != nil && firstErr == nil {
		firstErr = err
	}
	o.reserved = nil
	o.live = nil
	return firstErr
}
