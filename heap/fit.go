package heap

import (
	"math"

	"github.com/joshuapare/osmem/internal/format"
)

// bestFit returns the smallest free block of at least size bytes, the first
// one in address order on ties. When nothing fits but the tail is free, the
// arena grows by the shortfall and the tail is returned. A failed extension
// here just means no fit.
func (h *Heap) bestFit(size int) int {
	best, bestSize := format.NoBlock, math.MaxInt
	for cur := h.head; cur != format.NoBlock; {
		b := h.block(cur)
		if b.Status() == format.StatusFree && b.Size() >= size && b.Size() < bestSize {
			best, bestSize = cur, b.Size()
		}
		cur = b.Next()
	}
	if best != format.NoBlock || h.tail == format.NoBlock {
		return best
	}

	t := h.block(h.tail)
	if t.Status() != format.StatusFree || t.Size() >= size {
		return format.NoBlock
	}
	shortfall := size - t.Size()
	if err := h.growTail(shortfall); err != nil {
		if h.debug {
			h.log.Debug("tail extension failed", "shortfall", shortfall, "error", err)
		}
		return format.NoBlock
	}
	return h.tail
}
