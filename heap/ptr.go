package heap

import "fmt"

// Ptr addresses a payload: the region id in the high 24 bits and the payload
// offset within that region in the low 40 bits.
type Ptr uint64

// Nil is the null pointer.
const Nil Ptr = 0

const (
	offsetBits  = 40
	offsetMask  = 1<<offsetBits - 1
	maxRegionID = 1<<(64-offsetBits) - 1

	// arenaRegion is the region id of every arena-resident block.
	arenaRegion = 0

	// maxArena bounds the arena so every payload offset fits in a Ptr.
	maxArena = offsetMask
)

// MakePtr builds a Ptr from a region id and a payload offset.
func MakePtr(region uint32, off int) Ptr {
	return Ptr(uint64(region)<<offsetBits | uint64(off)&offsetMask)
}

// Region returns the region id; 0 means the arena.
func (p Ptr) Region() uint32 { return uint32(p >> offsetBits) }

// Offset returns the payload offset within the region.
func (p Ptr) Offset() int { return int(p & offsetMask) }

// Mapped reports whether p refers to an independent mapping.
func (p Ptr) Mapped() bool { return p != Nil && p.Region() != arenaRegion }

func (p Ptr) String() string {
	switch {
	case p == Nil:
		return "nil"
	case p.Region() == arenaRegion:
		return fmt.Sprintf("arena+%#x", p.Offset())
	default:
		return fmt.Sprintf("map%d+%#x", p.Region(), p.Offset())
	}
}
