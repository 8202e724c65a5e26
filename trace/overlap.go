package trace

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/joshuapare/osmem/heap"
)

// overlapChecker records which 8-byte arena granules and which mapping ids
// belong to live payloads.
type overlapChecker struct {
	arena   *roaring.Bitmap
	regions *roaring.Bitmap
	extents map[heap.Ptr]int
}

func newOverlapChecker() *overlapChecker {
	return &overlapChecker{
		arena:   roaring.New(),
		regions: roaring.New(),
		extents: make(map[heap.Ptr]int),
	}
}

// granules returns the half-open granule range covering n bytes at p.
func granules(p heap.Ptr, n int) (uint64, uint64) {
	start := uint64(p.Offset()) >> granuleShift
	end := (uint64(p.Offset()) + uint64(n) + 1<<granuleShift - 1) >> granuleShift
	return start, end
}

// add claims the payload of n bytes at p.
func (c *overlapChecker) add(p heap.Ptr, n int) error {
	if p.Mapped() {
		if c.regions.Contains(p.Region()) {
			return fmt.Errorf("%w: mapping %d handed out twice", ErrOverlap, p.Region())
		}
		c.regions.Add(p.Region())
		c.extents[p] = n
		return nil
	}

	start, end := granules(p, n)
	if end > math.MaxUint32 {
		// Beyond 32 GiB of arena; not tracked.
		return nil
	}
	claim := roaring.New()
	claim.AddRange(start, end)
	if c.arena.Intersects(claim) {
		return fmt.Errorf("%w: %s (%d bytes) overlaps a live block", ErrOverlap, p, n)
	}
	c.arena.Or(claim)
	c.extents[p] = n
	return nil
}

// remove releases whatever add recorded for p.
func (c *overlapChecker) remove(p heap.Ptr) {
	n, ok := c.extents[p]
	if !ok {
		return
	}
	delete(c.extents, p)
	if p.Mapped() {
		c.regions.Remove(p.Region())
		return
	}
	start, end := granules(p, n)
	c.arena.RemoveRange(start, end)
}

// liveBytes returns the number of arena bytes currently claimed.
func (c *overlapChecker) liveBytes() uint64 {
	return c.arena.GetCardinality() << granuleShift
}
