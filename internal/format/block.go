package format

// Header is a decoded block header.
type Header struct {
	Size   int
	Status Status
	Prev   int
	Next   int
}

// Block is a typed view of the header stored at Off within Data.
// It holds no state of its own; every accessor reads or writes Data.
type Block struct {
	Data []byte
	Off  int
}

// At returns the block whose header starts at off.
func At(data []byte, off int) Block {
	return Block{Data: data, Off: off}
}

// Size returns the total block length including the header.
func (b Block) Size() int { return int(ReadU64(b.Data, b.Off+SizeOffset)) }

// SetSize stores the total block length.
func (b Block) SetSize(n int) { PutU64(b.Data, b.Off+SizeOffset, uint64(n)) }

// Status returns the block's status tag.
func (b Block) Status() Status { return Status(ReadU32(b.Data, b.Off+StatusOffset)) }

// SetStatus stores the block's status tag.
func (b Block) SetStatus(s Status) { PutU32(b.Data, b.Off+StatusOffset, uint32(s)) }

// Prev returns the offset of the previous list block, or NoBlock.
func (b Block) Prev() int { return int(ReadI64(b.Data, b.Off+PrevOffset)) }

// SetPrev stores the previous-block link.
func (b Block) SetPrev(off int) { PutI64(b.Data, b.Off+PrevOffset, int64(off)) }

// Next returns the offset of the next list block, or NoBlock.
func (b Block) Next() int { return int(ReadI64(b.Data, b.Off+NextOffset)) }

// SetNext stores the next-block link.
func (b Block) SetNext(off int) { PutI64(b.Data, b.Off+NextOffset, int64(off)) }

// End returns the offset one past the last byte of the block.
func (b Block) End() int { return b.Off + b.Size() }

// Payload returns the bytes following the header up to the end of the block.
func (b Block) Payload() []byte { return b.Data[b.Off+HeaderSize : b.End()] }

// Init writes a complete header in one step.
func (b Block) Init(h Header) {
	b.SetSize(h.Size)
	b.SetStatus(h.Status)
	PutU32(b.Data, b.Off+ReservedOffset, 0)
	b.SetPrev(h.Prev)
	b.SetNext(h.Next)
}

// Header decodes the header at b.Off.
func (b Block) Header() Header {
	return Header{Size: b.Size(), Status: b.Status(), Prev: b.Prev(), Next: b.Next()}
}

// DecodeHeader decodes a header from the start of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncated
	}
	h := At(buf, 0).Header()
	if h.Status > StatusMapped {
		return h, ErrBadStatus
	}
	return h, nil
}
