package dump

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osmem/heap"
	"github.com/joshuapare/osmem/internal/format"
	"github.com/joshuapare/osmem/vm"
)

// buildHeap returns a heap with free, allocated and mapped blocks and a
// recognizable payload in the first block.
func buildHeap(t *testing.T) (*heap.Heap, heap.Ptr) {
	t.Helper()
	mem := vm.NewMemory(vm.MemoryOptions{})
	t.Cleanup(func() { mem.Close() })
	h := heap.New(mem, &heap.Config{OnFatal: func(error) {}})

	a, err := h.Alloc(100)
	require.NoError(t, err)
	b, err := h.Alloc(300)
	require.NoError(t, err)
	_, err = h.Alloc(200_000)
	require.NoError(t, err)
	require.NoError(t, h.Free(b))

	payload, err := h.Bytes(a)
	require.NoError(t, err)
	copy(payload, "snapshot payload")
	return h, a
}

func TestWriteRead_AllCodecs(t *testing.T) {
	for _, c := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		t.Run(c.String(), func(t *testing.T) {
			h, a := buildHeap(t)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, h, c))

			s, err := Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, uint8(Version), s.Version)
			assert.Equal(t, c, s.Codec, "a mostly zero arena should compress")
			assert.Equal(t, h.Blocks(), s.Blocks)
			assert.Equal(t, h.Arena(), s.Arena)

			assert.Equal(t, "snapshot payload", string(s.Payload(s.Blocks[0])[:16]))
			assert.Equal(t, a, s.Blocks[0].Ptr)
			assert.Nil(t, s.Payload(s.Blocks[len(s.Blocks)-1]), "mapped payloads are not stored")
		})
	}
}

func TestSummary(t *testing.T) {
	h, _ := buildHeap(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h, CodecZstd))
	s, err := Read(&buf)
	require.NoError(t, err)

	sum := s.Summary()
	st := h.Stats()
	assert.Equal(t, st.ArenaBytes, sum.ArenaBytes)
	assert.Equal(t, st.Blocks, sum.Blocks)
	assert.Equal(t, st.FreeBlocks, sum.FreeBlocks)
	assert.Equal(t, st.FreeBytes, sum.FreeBytes)
	assert.Equal(t, st.AllocBytes, sum.AllocBytes)
	assert.Equal(t, 1, sum.Mappings)
	assert.Equal(t, 200_032, sum.MappedBytes)
}

func TestWrite_EmptyHeap(t *testing.T) {
	h := heap.New(vm.NewMemory(vm.MemoryOptions{}), nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h, CodecZstd))
	assert.Equal(t, headerSize, buf.Len())

	s, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, CodecNone, s.Codec)
	assert.Empty(t, s.Blocks)
	assert.Empty(t, s.Arena)
}

func TestRead_Errors(t *testing.T) {
	h, _ := buildHeap(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h, CodecLZ4))
	good := buf.Bytes()

	mutate := func(fn func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return fn(b)
	}

	tests := []struct {
		name   string
		input  []byte
		target error
	}{
		{"empty", nil, ErrBadMagic},
		{"short header", good[:10], ErrBadMagic},
		{"wrong magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrBadMagic},
		{"future version", mutate(func(b []byte) []byte { b[versionOffset] = 9; return b }), ErrUnsupportedVersion},
		{"unknown codec", mutate(func(b []byte) []byte { b[codecOffset] = 7; return b }), ErrUnsupportedCodec},
		{"truncated body", good[:len(good)-5], ErrCorrupt},
		{"huge length", mutate(func(b []byte) []byte {
			format.PutU64(b, rawLenOffset, 1<<40)
			return b
		}), ErrCorrupt},
		{"stored length past input", mutate(func(b []byte) []byte {
			format.PutU64(b, storedLenOffset, 1<<33)
			return b
		}), ErrCorrupt},
		{"lz4 raw length past ratio", mutate(func(b []byte) []byte {
			format.PutU64(b, rawLenOffset, 1<<33)
			return b
		}), ErrCorrupt},
		{"uncompressed length mismatch", mutate(func(b []byte) []byte {
			b[codecOffset] = byte(CodecNone)
			return b
		}), ErrCorrupt},
		{"mapping count", mutate(func(b []byte) []byte {
			format.PutU32(b, mapCountOffset, 5)
			return b
		}), ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.input))
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestRead_ClaimedLengthsDoNotAllocate(t *testing.T) {
	hdr := make([]byte, headerSize)
	copy(hdr[magicOffset:], Magic)
	hdr[versionOffset] = Version
	hdr[codecOffset] = byte(CodecZstd)
	format.PutU64(hdr, rawLenOffset, maxBody)
	format.PutU64(hdr, storedLenOffset, maxBody)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := Read(bytes.NewReader(hdr))
	runtime.ReadMemStats(&after)

	require.ErrorIs(t, err, ErrCorrupt)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestParseCodec(t *testing.T) {
	for _, c := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		got, err := ParseCodec(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCodec("brotli")
	require.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestCompress_IncompressibleFallsBack(t *testing.T) {
	raw := make([]byte, 4096)
	x := uint32(2463534242)
	for i := range raw {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		raw[i] = byte(x)
	}
	for _, c := range []Codec{CodecLZ4, CodecZstd} {
		out, used, err := compress(raw, c)
		require.NoError(t, err)
		assert.Equal(t, CodecNone, used, c.String())
		assert.Equal(t, raw, out)
	}
}
