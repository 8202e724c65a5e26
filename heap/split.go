package heap

import "github.com/joshuapare/osmem/internal/format"

// split carves the block at off down to size bytes and links the remainder
// in after it as a free block. Remainders smaller than a header plus one
// alignment unit stay with the block.
func (h *Heap) split(off, size int) {
	b := h.block(off)
	rem := b.Size() - size
	if rem < format.MinBlockSize {
		return
	}

	tailOff := off + size
	next := b.Next()
	h.block(tailOff).Init(format.Header{
		Size:   rem,
		Status: format.StatusFree,
		Prev:   off,
		Next:   next,
	})
	if next != format.NoBlock {
		h.block(next).SetPrev(tailOff)
	}
	b.SetNext(tailOff)
	b.SetSize(size)

	if h.tail == off {
		h.tail = tailOff
	}
	h.stats.SplitCount++
}

// coalesce merges every free successor of the free block at off into it.
func (h *Heap) coalesce(off int) {
	if off == format.NoBlock || h.block(off).Status() != format.StatusFree {
		return
	}
	h.mergeForward(off)
}

// mergeForward absorbs the run of free blocks that follows off, whatever
// off's own status. It returns the number of blocks absorbed.
func (h *Heap) mergeForward(off int) int {
	b := h.block(off)
	merged := 0
	for next := b.Next(); next != format.NoBlock; next = b.Next() {
		n := h.block(next)
		if n.Status() != format.StatusFree {
			break
		}
		b.SetSize(b.Size() + n.Size())
		after := n.Next()
		b.SetNext(after)
		if after != format.NoBlock {
			h.block(after).SetPrev(off)
		} else {
			h.tail = off
		}
		merged++
	}
	h.stats.CoalesceCount += merged
	return merged
}

// coalesceAll sweeps the list once so that no two adjacent blocks are free.
func (h *Heap) coalesceAll() {
	for cur := h.head; cur != format.NoBlock; cur = h.block(cur).Next() {
		if h.block(cur).Status() == format.StatusFree {
			h.coalesce(cur)
		}
	}
}
