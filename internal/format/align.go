package format

// Align8 returns n aligned up to the next 8-byte boundary.
// Used for block sizes, which must always be a multiple of Alignment.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// AlignPage returns n aligned up to the next multiple of pageSize.
// pageSize must be a power of two.
//
// Example:
//
//	AlignPage(1, 4096)    = 4096
//	AlignPage(4096, 4096) = 4096
//	AlignPage(4097, 4096) = 8192
func AlignPage(n, pageSize int) int {
	mask := pageSize - 1
	return (n + mask) & ^mask
}

// IsAligned8 reports whether n sits on an 8-byte boundary.
func IsAligned8(n int) bool {
	return n&AlignmentMask == 0
}

// BlockSize returns the aligned total block size (header included) needed to
// hold a payload of n bytes, and false if the computation would overflow.
func BlockSize(n int) (int, bool) {
	const maxInt = int(^uint(0) >> 1)
	if n < 0 || n > maxInt-HeaderSize-AlignmentMask {
		return 0, false
	}
	return Align8(n + HeaderSize), true
}
