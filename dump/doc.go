// Package dump writes and reads heap snapshots.
//
// A snapshot captures the arena bytes and the block table (arena list plus
// mapping headers) so a heap can be inspected after the process that built
// it is gone. Mapping payloads are not included.
//
// # File Layout
//
//	offset  size  field
//	0x00    4     magic "OSMD"
//	0x04    1     version
//	0x05    1     codec (0 none, 1 lz4, 2 zstd)
//	0x06    2     reserved
//	0x08    4     block count
//	0x0C    4     mapping count
//	0x10    8     body length, uncompressed
//	0x18    8     body length, stored
//	0x20    ...   body
//
// The body is the block table (40 bytes per block) followed by the arena.
// When the chosen codec does not shrink the body it is stored uncompressed
// and the codec byte says so.
package dump
