// Package vm abstracts the two virtual-memory facilities the heap allocator
// is built on.
//
// # Overview
//
// An Arena is a single contiguous region that only grows, at its break, like
// a program break moved with sbrk. A Mapper hands out independent anonymous
// regions that are released one by one. A Provider bundles both with the
// platform page size.
//
// # Implementations
//
// OS: reserves address space once and commits it page by page as the break
// moves, so arena addresses never change. Large objects are anonymous mmaps.
// Requires a unix platform.
//
//	p, err := vm.NewOS(vm.DefaultReserve)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
// Memory: keeps the arena in an ordinary Go byte slice and serves mappings
// with make. Limits can be set to inject exhaustion failures in tests.
//
//	p := vm.NewMemory(vm.MemoryOptions{ArenaLimit: 1 << 20})
//
// # Thread Safety
//
// Providers are not thread-safe. The heap package serializes every call it
// makes; callers sharing a provider must synchronize externally.
package vm
