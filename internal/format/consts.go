// Package format describes the on-arena layout of block headers. The goal is
// to keep the byte-level encoding in one place so the allocator works with
// offsets and typed accessors instead of hand-computed field positions.
package format

const (
	// Alignment is the boundary every block size and payload offset is
	// rounded to.
	Alignment = 8

	// AlignmentMask is the bitmask used for aligning to 8-byte boundaries (Alignment - 1).
	AlignmentMask = Alignment - 1

	// HeaderSize is the number of bytes of metadata that precede every
	// payload, free or in use, arena-resident or mapped.
	// Layout (little-endian):
	//   0x00  size   uint64  total block length including this header
	//   0x08  status uint32  StatusFree / StatusAlloc / StatusMapped
	//   0x0C  (reserved)
	//   0x10  prev   int64   offset of the previous block, NoBlock if none
	//   0x18  next   int64   offset of the next block, NoBlock if none
	HeaderSize = 0x20

	// MinBlockSize is the smallest block worth representing: a header plus
	// one alignment unit of payload. Split remainders below this are absorbed.
	MinBlockSize = HeaderSize + Alignment

	// Header field offsets.
	SizeOffset     = 0x00
	StatusOffset   = 0x08
	ReservedOffset = 0x0C
	PrevOffset     = 0x10
	NextOffset     = 0x18

	// NoBlock marks a missing prev/next link.
	NoBlock = -1

	// MapThreshold is the default aligned block size at or above which a
	// request bypasses the arena and gets its own mapping.
	MapThreshold = 128 * 1024
)

// Status is the tri-state tag stored in every block header.
type Status uint32

const (
	StatusFree   Status = 0
	StatusAlloc  Status = 1
	StatusMapped Status = 2
)

// String returns a short lowercase name for the status.
func (s Status) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusAlloc:
		return "alloc"
	case StatusMapped:
		return "mapped"
	default:
		return "unknown"
	}
}
