// Package trace parses and replays allocation scripts against a heap.
//
// A script is line oriented. Blank lines and lines starting with '#' are
// ignored. Names bind the pointers returned by allocations:
//
//	a = malloc 100
//	b = calloc 4 32
//	a = realloc a 4000
//	fill a 0x5a
//	check a 0x5a 4000
//	free b
//	verify
//
// Numbers accept Go literal prefixes (0x, 0o, 0b) and underscores. The
// keyword nil can stand in for a name in realloc and free. Input may be UTF-8
// or, with a byte order mark, UTF-16.
//
// Replay executes the ops in order. With Options.CheckOverlap it tracks every
// live arena payload in a roaring bitmap of 8-byte granules and fails as soon
// as two live payloads share memory or a mapping id is handed out twice.
package trace
