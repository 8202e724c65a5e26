package heap

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joshuapare/osmem/internal/format"
)

// BlockInfo describes one block. For mapped blocks Offset is 0 and Prev/Next
// are format.NoBlock.
type BlockInfo struct {
	Ptr    Ptr
	Offset int // header offset within the region
	Size   int // total size including header
	Status format.Status
	Prev   int
	Next   int
}

// Payload returns the usable payload length.
func (bi BlockInfo) Payload() int { return bi.Size - format.HeaderSize }

// Walk calls fn for every arena block in address order, then for every
// mapping in region order, until fn returns false. fn must not call into h.
func (h *Heap) Walk(fn func(BlockInfo) bool) {
	for cur := h.head; cur != format.NoBlock; {
		b := h.block(cur)
		hdr := b.Header()
		if !fn(BlockInfo{
			Ptr:    MakePtr(arenaRegion, cur+format.HeaderSize),
			Offset: cur,
			Size:   hdr.Size,
			Status: hdr.Status,
			Prev:   hdr.Prev,
			Next:   hdr.Next,
		}) {
			return
		}
		cur = hdr.Next
	}
	for _, id := range slices.Sorted(maps.Keys(h.maps)) {
		hdr := format.At(h.maps[id], 0).Header()
		if !fn(BlockInfo{
			Ptr:    MakePtr(id, format.HeaderSize),
			Size:   hdr.Size,
			Status: hdr.Status,
			Prev:   format.NoBlock,
			Next:   format.NoBlock,
		}) {
			return
		}
	}
}

// Blocks returns every block Walk would visit.
func (h *Heap) Blocks() []BlockInfo {
	var out []BlockInfo
	h.Walk(func(bi BlockInfo) bool {
		out = append(out, bi)
		return true
	})
	return out
}

// Arena returns the raw arena bytes up to the break.
// The slice is valid until the next call that may grow the arena.
func (h *Heap) Arena() []byte { return h.p.Bytes() }

// Verify checks the block list against its structural invariants: address
// order, exact contiguity, back links, sizes, status tags, the tail pointer
// and the arena break. It also checks every mapping's header.
func (h *Heap) Verify() error {
	data := h.p.Bytes()
	if (h.head == format.NoBlock) != (h.tail == format.NoBlock) {
		return fmt.Errorf("%w: head=%d tail=%d", ErrCorrupt, h.head, h.tail)
	}

	prev, expect := format.NoBlock, h.head
	if h.head != format.NoBlock && h.head != 0 {
		return fmt.Errorf("%w: head at %d, want 0", ErrCorrupt, h.head)
	}
	limit := len(data)/format.MinBlockSize + 1
	for cur, n := h.head, 0; cur != format.NoBlock; n++ {
		if n > limit {
			return fmt.Errorf("%w: cycle detected after %d blocks", ErrCorrupt, n)
		}
		if cur != expect {
			return fmt.Errorf("%w: block at %d, want %d (gap or overlap)", ErrCorrupt, cur, expect)
		}
		if !format.IsAligned8(cur) || cur+format.HeaderSize > len(data) {
			return fmt.Errorf("%w: block at %d out of bounds or misaligned", ErrCorrupt, cur)
		}
		b := format.At(data, cur)
		hdr := b.Header()
		switch {
		case hdr.Size < format.MinBlockSize || !format.IsAligned8(hdr.Size):
			return fmt.Errorf("%w: block at %d has size %d", ErrCorrupt, cur, hdr.Size)
		case hdr.Size > len(data)-cur:
			return fmt.Errorf("%w: block at %d (size %d) runs past break %d", ErrCorrupt, cur, hdr.Size, len(data))
		case hdr.Status != format.StatusFree && hdr.Status != format.StatusAlloc:
			return fmt.Errorf("%w: block at %d has status %s", ErrCorrupt, cur, hdr.Status)
		case hdr.Prev != prev:
			return fmt.Errorf("%w: block at %d links back to %d, want %d", ErrCorrupt, cur, hdr.Prev, prev)
		}
		prev, expect = cur, cur+hdr.Size
		cur = hdr.Next
	}
	if prev != h.tail {
		return fmt.Errorf("%w: last block %d, tail pointer %d", ErrCorrupt, prev, h.tail)
	}
	if h.tail != format.NoBlock && expect != len(data) {
		return fmt.Errorf("%w: tail ends at %d, break at %d", ErrCorrupt, expect, len(data))
	}

	for id, m := range h.maps {
		hdr, err := format.DecodeHeader(m)
		if err != nil {
			return fmt.Errorf("%w: mapping %d: %w", ErrCorrupt, id, err)
		}
		if hdr.Status != format.StatusMapped || hdr.Size != len(m) {
			return fmt.Errorf("%w: mapping %d header %+v, length %d", ErrCorrupt, id, hdr, len(m))
		}
	}
	return nil
}

// Coalesced reports whether no two adjacent arena blocks are both free.
func (h *Heap) Coalesced() bool {
	lastFree := false
	for cur := h.head; cur != format.NoBlock; {
		b := h.block(cur)
		free := b.Status() == format.StatusFree
		if free && lastFree {
			return false
		}
		lastFree = free
		cur = b.Next()
	}
	return true
}
