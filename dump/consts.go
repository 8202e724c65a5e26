package dump

// Codec selects the body compression.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecLZ4  Codec = 1
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCodec maps a codec name to its value.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "none", "":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	}
	return 0, ErrUnsupportedCodec
}

const (
	Magic   = "OSMD"
	Version = 1

	headerSize = 0x20
	entrySize  = 0x28

	magicOffset      = 0x00
	versionOffset    = 0x04
	codecOffset      = 0x05
	blockCountOffset = 0x08
	mapCountOffset   = 0x0C
	rawLenOffset     = 0x10
	storedLenOffset  = 0x18

	// Block table entry.
	entryRegionOffset = 0x00
	entryStatusOffset = 0x04
	entryOffOffset    = 0x08
	entrySizeOffset   = 0x10
	entryPrevOffset   = 0x18
	entryNextOffset   = 0x20

	// maxBody bounds the decompressed body accepted by Read.
	maxBody = 1 << 34
)
