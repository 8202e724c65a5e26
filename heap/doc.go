// Package heap implements a general-purpose allocator over a single growable
// arena plus independently mapped large objects.
//
// # Overview
//
// Every block, free or in use, starts with a 32-byte header embedded in the
// memory it describes (see internal/format). Arena blocks are linked into one
// address-ordered doubly linked list through byte offsets stored in those
// headers, so there is no index outside the arena itself:
//
//	offset 0                                                 break
//	| hdr | payload ... | hdr | payload | hdr | free ...     |
//	  ^ head                               ^ tail
//
// Adjacent list blocks are always exactly contiguous: next == off + size.
//
// # Allocation Paths
//
// Requests whose aligned block size (payload + header, rounded to 8 bytes)
// is below Config.MapThreshold (128 KiB by default) are served from the arena:
//
//   - The first small request grows the arena by Config.InitialChunk and
//     splits off the unused remainder.
//   - Later requests merge adjacent free blocks, then pick the smallest free
//     block that fits (best fit). If nothing fits but the tail block is free,
//     the arena grows by exactly the shortfall and the tail is used.
//   - Otherwise the arena grows by exactly the requested block size.
//
// Larger requests get their own mapping from the vm.Mapper, tagged
// StatusMapped, and are unmapped individually on Free.
//
// Free never merges eagerly; coalescing is deferred to the next allocation.
//
// # Pointers
//
// A Ptr encodes a region id and a payload offset. Region 0 is the arena;
// every mapping gets its own id. Nil is the zero Ptr. Use Bytes to access a
// payload. Slices returned by Bytes are only valid until the next call that
// may grow the arena.
//
// # Resize
//
// Realloc tries, in order: relocation for mapped or over-threshold sizes,
// shrinking in place, growing the tail block in place, absorbing following
// free blocks in place, and finally copying into a fresh block.
//
// # Provider Failures
//
// Failure to extend the arena, map or unmap is an environment fault, not an
// allocation result. The heap builds a *ProviderError, logs it and calls
// Config.OnFatal, which by default terminates the process. A handler that
// returns lets the error surface to the caller. The only tolerated provider
// failure is the best-fit tail extension, which degrades to "no fit".
//
// # Thread Safety
//
// Heap instances are not thread-safe. Wrap one in a Locked for concurrent
// use; the lock covers whole operations, including provider calls.
package heap
