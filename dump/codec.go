package dump

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// An lz4 block expands by at most 255x plus a short tail.
	lz4MaxRatio = 255
	lz4Slack    = 64

	// zstdPresize caps the output capacity guessed up front; DecodeAll grows
	// past it as needed.
	zstdPresize = 16
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBody))
}

// compress returns the stored body and the codec actually used. A body the
// codec cannot shrink is stored as is.
func compress(raw []byte, c Codec) ([]byte, Codec, error) {
	if len(raw) == 0 {
		return raw, CodecNone, nil
	}

	var out []byte
	switch c {
	case CodecNone:
		return raw, CodecNone, nil

	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n]

	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, err
		}
		out = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)

	default:
		return nil, 0, ErrUnsupportedCodec
	}

	if len(out) == 0 || len(out) >= len(raw) {
		return raw, CodecNone, nil
	}
	return out, c, nil
}

// decompress expands a stored body of rawLen bytes.
func decompress(stored []byte, c Codec, rawLen int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(stored) != rawLen {
			return nil, ErrCorrupt
		}
		return stored, nil

	case CodecLZ4:
		if rawLen > lz4MaxRatio*len(stored)+lz4Slack {
			return nil, errors.New("dump: lz4 body cannot expand to declared size")
		}
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, errors.New("dump: decompressed size mismatch")
		}
		return raw, nil

	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(stored, make([]byte, 0, min(rawLen, zstdPresize*len(stored))))
		if err != nil {
			return nil, err
		}
		if len(raw) != rawLen {
			return nil, errors.New("dump: decompressed size mismatch")
		}
		return raw, nil
	}
	return nil, ErrUnsupportedCodec
}
