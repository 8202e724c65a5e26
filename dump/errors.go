package dump

import "errors"

var (
	// ErrBadMagic indicates the input is not a snapshot.
	ErrBadMagic = errors.New("dump: bad magic")

	// ErrUnsupportedCodec indicates an unknown codec name or byte.
	ErrUnsupportedCodec = errors.New("dump: unsupported codec")

	// ErrUnsupportedVersion indicates a snapshot from a newer format.
	ErrUnsupportedVersion = errors.New("dump: unsupported version")

	// ErrCorrupt indicates inconsistent lengths or a bad block table.
	ErrCorrupt = errors.New("dump: corrupt snapshot")
)
