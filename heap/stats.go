package heap

import "github.com/joshuapare/osmem/internal/format"

// Stats holds allocator counters and a snapshot of the block list.
type Stats struct {
	AllocCalls   int // Alloc calls, including Realloc of Nil
	CallocCalls  int
	ReallocCalls int
	FreeCalls    int

	GrowCalls      int   // arena extensions of any kind
	GrowBytes      int64 // total bytes added to the arena
	TailExtends    int   // extensions that enlarged the tail block in place
	Reused         int   // small allocations served from an existing free block
	SplitCount     int
	CoalesceCount  int // blocks absorbed by a neighbor
	InPlaceResizes int // Realloc calls that kept the pointer
	Relocations    int // Realloc calls that copied into a new block

	MapCalls    int
	UnmapCalls  int
	MappedBytes int64 // bytes in live mappings

	// Snapshot of the arena list, filled by Stats().
	ArenaBytes  int
	Blocks      int
	FreeBlocks  int
	FreeBytes   int
	AllocBytes  int
	LargestFree int
	Mappings    int
}

// Stats returns the counters plus a fresh walk of the arena list.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.ArenaBytes = h.ArenaSize()
	s.Mappings = len(h.maps)
	for cur := h.head; cur != format.NoBlock; {
		b := h.block(cur)
		s.Blocks++
		if b.Status() == format.StatusFree {
			s.FreeBlocks++
			s.FreeBytes += b.Size()
			s.LargestFree = max(s.LargestFree, b.Size())
		} else {
			s.AllocBytes += b.Size()
		}
		cur = b.Next()
	}
	return s
}
