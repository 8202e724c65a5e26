package heap

import (
	"fmt"

	"github.com/joshuapare/osmem/internal/format"
	"github.com/joshuapare/osmem/vm"
)

// block returns the header at off in the current arena.
// Do not keep the result across calls that extend the arena.
func (h *Heap) block(off int) format.Block {
	return format.At(h.p.Bytes(), off)
}

// arenaBlock recovers and sanity-checks the header offset for an arena Ptr.
func (h *Heap) arenaBlock(p Ptr) (int, error) {
	off := p.Offset() - format.HeaderSize
	data := h.p.Bytes()
	if off < 0 || !format.IsAligned8(off) || off+format.HeaderSize > len(data) {
		return format.NoBlock, ErrBadPointer
	}
	b := format.At(data, off)
	size := b.Size()
	if size < format.MinBlockSize || size > len(data)-off || b.Status() > format.StatusAlloc {
		return format.NoBlock, ErrBadPointer
	}
	return off, nil
}

// extend grows the arena by n bytes and checks that the new bytes start
// where the tail block ends.
func (h *Heap) extend(n int) (int, error) {
	brk := len(h.p.Bytes())
	if n > maxArena-brk {
		return format.NoBlock, fmt.Errorf("%w: arena would exceed %d bytes", vm.ErrArenaExhausted, maxArena)
	}
	prev, err := h.p.Extend(n)
	if err != nil {
		return format.NoBlock, err
	}
	if prev != brk {
		return format.NoBlock, errArenaMoved
	}

	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(n)
	if h.debug {
		h.log.Debug("grow", "bytes", n, "break", prev+n)
	}
	if h.onGrow != nil {
		h.onGrow(n)
	}
	return prev, nil
}

// brkBlock grows the arena by n bytes (already aligned) and appends the new
// space as an allocated tail block. A provider failure here is fatal.
func (h *Heap) brkBlock(n int) (int, error) {
	if n <= 0 {
		return format.NoBlock, ErrInvalidSize
	}
	off, err := h.extend(n)
	if err != nil {
		return format.NoBlock, h.fatal("extend", n, err)
	}

	h.block(off).Init(format.Header{
		Size:   n,
		Status: format.StatusAlloc,
		Prev:   h.tail,
		Next:   format.NoBlock,
	})
	if h.tail == format.NoBlock {
		h.head = off
	} else {
		h.block(h.tail).SetNext(off)
	}
	h.tail = off
	return off, nil
}

// growTail enlarges the tail block in place by n bytes.
// The caller decides whether a failure is fatal.
func (h *Heap) growTail(n int) error {
	if _, err := h.extend(n); err != nil {
		return err
	}
	t := h.block(h.tail)
	t.SetSize(t.Size() + n)
	h.stats.TailExtends++
	return nil
}
