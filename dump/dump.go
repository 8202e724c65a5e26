package dump

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/osmem/heap"
	"github.com/joshuapare/osmem/internal/format"
)

// Snapshot is a decoded dump.
type Snapshot struct {
	Version uint8
	Codec   Codec // codec the body was stored with
	Blocks  []heap.BlockInfo
	Arena   []byte
}

// Write serializes h to w. The heap must not change while Write runs.
func Write(w io.Writer, h *heap.Heap, c Codec) error {
	blocks := h.Blocks()
	arena := h.Arena()

	raw := make([]byte, len(blocks)*entrySize+len(arena))
	mappings := 0
	for i, bi := range blocks {
		putEntry(raw[i*entrySize:], bi)
		if bi.Ptr.Mapped() {
			mappings++
		}
	}
	copy(raw[len(blocks)*entrySize:], arena)

	body, used, err := compress(raw, c)
	if err != nil {
		return fmt.Errorf("dump: compress %s: %w", c, err)
	}

	hdr := make([]byte, headerSize)
	copy(hdr[magicOffset:], Magic)
	hdr[versionOffset] = Version
	hdr[codecOffset] = byte(used)
	format.PutU32(hdr, blockCountOffset, uint32(len(blocks)))
	format.PutU32(hdr, mapCountOffset, uint32(mappings))
	format.PutU64(hdr, rawLenOffset, uint64(len(raw)))
	format.PutU64(hdr, storedLenOffset, uint64(len(body)))

	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*Snapshot, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short header", ErrBadMagic)
		}
		return nil, err
	}
	if !bytes.Equal(hdr[magicOffset:magicOffset+len(Magic)], []byte(Magic)) {
		return nil, ErrBadMagic
	}
	if hdr[versionOffset] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr[versionOffset])
	}
	codec := Codec(hdr[codecOffset])
	if codec > CodecZstd {
		return nil, fmt.Errorf("%w: byte %d", ErrUnsupportedCodec, codec)
	}

	count := int(format.ReadU32(hdr, blockCountOffset))
	rawLen := format.ReadU64(hdr, rawLenOffset)
	storedLen := format.ReadU64(hdr, storedLenOffset)
	if rawLen > maxBody || storedLen > maxBody || uint64(count)*entrySize > rawLen {
		return nil, fmt.Errorf("%w: lengths raw=%d stored=%d blocks=%d", ErrCorrupt, rawLen, storedLen, count)
	}

	if codec == CodecNone && rawLen != storedLen {
		return nil, fmt.Errorf("%w: stored body %d bytes, want %d", ErrCorrupt, storedLen, rawLen)
	}

	// The buffer grows with the bytes actually present, not the header's claim.
	stored, err := io.ReadAll(io.LimitReader(r, int64(storedLen)))
	if err != nil {
		return nil, fmt.Errorf("%w: body: %w", ErrCorrupt, err)
	}
	if uint64(len(stored)) != storedLen {
		return nil, fmt.Errorf("%w: body: %d of %d bytes", ErrCorrupt, len(stored), storedLen)
	}
	raw, err := decompress(stored, codec, int(rawLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	s := &Snapshot{
		Version: hdr[versionOffset],
		Codec:   codec,
		Blocks:  make([]heap.BlockInfo, count),
		Arena:   raw[count*entrySize:],
	}
	mappings := 0
	for i := range s.Blocks {
		s.Blocks[i] = readEntry(raw[i*entrySize:])
		if s.Blocks[i].Ptr.Mapped() {
			mappings++
		}
	}
	if mappings != int(format.ReadU32(hdr, mapCountOffset)) {
		return nil, fmt.Errorf("%w: mapping count", ErrCorrupt)
	}
	return s, nil
}

func putEntry(b []byte, bi heap.BlockInfo) {
	format.PutU32(b, entryRegionOffset, bi.Ptr.Region())
	format.PutU32(b, entryStatusOffset, uint32(bi.Status))
	format.PutU64(b, entryOffOffset, uint64(bi.Offset))
	format.PutU64(b, entrySizeOffset, uint64(bi.Size))
	format.PutI64(b, entryPrevOffset, int64(bi.Prev))
	format.PutI64(b, entryNextOffset, int64(bi.Next))
}

func readEntry(b []byte) heap.BlockInfo {
	region := format.ReadU32(b, entryRegionOffset)
	off := int(format.ReadU64(b, entryOffOffset))
	return heap.BlockInfo{
		Ptr:    heap.MakePtr(region, off+format.HeaderSize),
		Offset: off,
		Size:   int(format.ReadU64(b, entrySizeOffset)),
		Status: format.Status(format.ReadU32(b, entryStatusOffset)),
		Prev:   int(format.ReadI64(b, entryPrevOffset)),
		Next:   int(format.ReadI64(b, entryNextOffset)),
	}
}

// Payload returns the arena bytes of an arena block's payload, or nil for a
// mapping or a block outside the arena.
func (s *Snapshot) Payload(bi heap.BlockInfo) []byte {
	if bi.Ptr.Mapped() || bi.Offset < 0 || bi.Size < format.HeaderSize || bi.Offset+bi.Size > len(s.Arena) {
		return nil
	}
	return s.Arena[bi.Offset+format.HeaderSize : bi.Offset+bi.Size]
}

// Summary tallies a snapshot's blocks.
type Summary struct {
	ArenaBytes  int
	Blocks      int
	FreeBlocks  int
	FreeBytes   int
	AllocBlocks int
	AllocBytes  int
	Mappings    int
	MappedBytes int
}

// Summary tallies the block table.
func (s *Snapshot) Summary() Summary {
	sum := Summary{ArenaBytes: len(s.Arena)}
	for _, bi := range s.Blocks {
		switch {
		case bi.Ptr.Mapped():
			sum.Mappings++
			sum.MappedBytes += bi.Size
		case bi.Status == format.StatusFree:
			sum.Blocks++
			sum.FreeBlocks++
			sum.FreeBytes += bi.Size
		default:
			sum.Blocks++
			sum.AllocBlocks++
			sum.AllocBytes += bi.Size
		}
	}
	return sum
}
