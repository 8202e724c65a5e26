package heap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osmem/internal/format"
	"github.com/joshuapare/osmem/vm"
)

func TestAlloc_InvalidSize(t *testing.T) {
	h, _, rec := newTestHeap(t, vm.MemoryOptions{}, nil)

	for _, n := range []int{0, -1, math.MinInt} {
		p, err := h.Alloc(n)
		require.ErrorIs(t, err, ErrInvalidSize)
		assert.Equal(t, Nil, p)
	}
	p, err := h.Alloc(math.MaxInt)
	require.ErrorIs(t, err, ErrInvalidSize)
	assert.Equal(t, Nil, p)

	assert.Zero(t, h.ArenaSize(), "invalid requests must not touch the arena")
	assert.Empty(t, rec.errs)
}

func TestAlloc_PayloadAlignment(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	for size := 1; size <= 300; size++ {
		p := mustAlloc(t, h, size)
		require.Zero(t, p.Offset()%format.Alignment, "size %d", size)

		n, err := h.UsableSize(p)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, size)
		require.Zero(t, (n+format.HeaderSize)%format.Alignment)
	}
	assertInvariants(t, h)
}

func TestAlloc_FirstRequestGrowsByInitialChunk(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)
	grows := setupGrowCounter(h)

	mustAlloc(t, h, 100)
	assert.Equal(t, 1, *grows)
	assert.Equal(t, format.MapThreshold, h.ArenaSize())

	blocks := h.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, format.StatusAlloc, blocks[0].Status)
	assert.Equal(t, 136, blocks[0].Size)
	assert.Equal(t, format.StatusFree, blocks[1].Status)
	assert.Equal(t, format.MapThreshold-136, blocks[1].Size)
	assertInvariants(t, h)
}

func TestAlloc_ReusesFreedBlock(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	a := mustAlloc(t, h, 100)
	b := mustAlloc(t, h, 100)
	require.NoError(t, h.Free(a))

	c := mustAlloc(t, h, 90)
	assert.Equal(t, a, c, "best fit should pick the freed 136-byte block")
	assert.NotEqual(t, b, c)
	assert.Equal(t, 1, h.Stats().GrowCalls)
	assertInvariants(t, h)
}

func TestAlloc_BestFitPicksSmallest(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	big := mustAlloc(t, h, 500)
	mustAlloc(t, h, 8)
	small := mustAlloc(t, h, 200)
	mustAlloc(t, h, 8)
	require.NoError(t, h.Free(big))
	require.NoError(t, h.Free(small))

	p := mustAlloc(t, h, 150)
	assert.Equal(t, small, p)
	assertInvariants(t, h)
}

func TestAlloc_BestFitTieKeepsLowestAddress(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	first := mustAlloc(t, h, 64)
	mustAlloc(t, h, 8)
	second := mustAlloc(t, h, 64)
	mustAlloc(t, h, 8)
	require.NoError(t, h.Free(second))
	require.NoError(t, h.Free(first))

	assert.Equal(t, first, mustAlloc(t, h, 64))
	assert.Equal(t, second, mustAlloc(t, h, 64))
}

func TestAlloc_CoalescesBeforeGrowing(t *testing.T) {
	// Three 1032-byte blocks fill the first chunk exactly.
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, &Config{InitialChunk: 3 * 1032})
	a := mustAlloc(t, h, 1000)
	b := mustAlloc(t, h, 1000)
	c := mustAlloc(t, h, 1000)
	require.Equal(t, 3*1032, h.ArenaSize())
	require.Zero(t, h.Stats().FreeBlocks)

	grows := setupGrowCounter(h)
	require.NoError(t, h.Free(a))
	require.NoError(t, h.Free(b))
	require.NoError(t, h.Free(c))
	assert.False(t, h.Coalesced(), "free must not merge eagerly")

	p := mustAlloc(t, h, 3000)
	assert.Equal(t, a, p)
	assert.Zero(t, *grows, "merged free space should satisfy the request")
	assert.True(t, h.Coalesced())

	st := h.Stats()
	assert.Equal(t, 2, st.CoalesceCount)
	assert.Equal(t, 1, st.FreeBlocks)
	assert.Equal(t, 3*1032-3032, st.FreeBytes)
	assertInvariants(t, h)
}

func TestAlloc_GrowsFreeTailByShortfall(t *testing.T) {
	h, _, rec := newTestHeap(t, vm.MemoryOptions{}, &Config{InitialChunk: 48})
	mustAlloc(t, h, 10)
	b := mustAlloc(t, h, 10)
	require.Equal(t, 96, h.ArenaSize())
	require.NoError(t, h.Free(b))

	p := mustAlloc(t, h, 100)
	assert.Equal(t, b, p, "free tail should be extended and reused")
	assert.Equal(t, 48+136, h.ArenaSize())
	assert.Equal(t, 1, h.Stats().TailExtends)
	assert.Empty(t, rec.errs)
	assertInvariants(t, h)
}

func TestAlloc_TailExtensionFailureIsNotFatal(t *testing.T) {
	h, _, rec := newTestHeap(t, vm.MemoryOptions{ArenaLimit: 150}, &Config{InitialChunk: 48})
	mustAlloc(t, h, 10)
	b := mustAlloc(t, h, 10)
	require.NoError(t, h.Free(b))

	// Both the tail extension and the fallback growth exceed the limit; only
	// the fallback reports a provider failure.
	p, err := h.Alloc(100)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrArenaExhausted)
	assert.Equal(t, Nil, p)
	require.Len(t, rec.errs, 1)

	var perr *ProviderError
	require.ErrorAs(t, rec.errs[0], &perr)
	assert.Equal(t, "extend", perr.Op)
	assert.Equal(t, 136, perr.Size)
	assertInvariants(t, h)
}

func TestAlloc_ThresholdRouting(t *testing.T) {
	h, mem, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	below := mustAlloc(t, h, format.MapThreshold-format.HeaderSize-format.Alignment)
	assert.False(t, below.Mapped())
	assert.Zero(t, mem.Mappings())

	at := mustAlloc(t, h, format.MapThreshold-format.HeaderSize)
	assert.True(t, at.Mapped())
	assert.Equal(t, 1, mem.Mappings())
	assert.Equal(t, format.MapThreshold, mem.MappedBytes())

	n, err := h.UsableSize(at)
	require.NoError(t, err)
	assert.Equal(t, format.MapThreshold-format.HeaderSize, n)

	require.NoError(t, h.Free(at))
	assert.Zero(t, mem.Mappings())
	assert.Zero(t, h.Stats().MappedBytes)
	assertInvariants(t, h)
}

func TestAlloc_CustomMapThreshold(t *testing.T) {
	h, mem, _ := newTestHeap(t, vm.MemoryOptions{}, &Config{MapThreshold: 4096})

	p := mustAlloc(t, h, 4096)
	assert.True(t, p.Mapped())
	assert.Equal(t, 1, mem.Mappings())

	q := mustAlloc(t, h, 4000)
	assert.False(t, q.Mapped())
}

func TestAlloc_MappedRegionsGetDistinctIDs(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	seen := make(map[uint32]bool)
	for range 8 {
		p := mustAlloc(t, h, 200_000)
		require.True(t, p.Mapped())
		require.False(t, seen[p.Region()])
		seen[p.Region()] = true
		require.NoError(t, h.Free(p))
	}
}

func TestAlloc_NoOverlap(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, &Config{InitialChunk: 256})

	sizes := []int{1, 7, 8, 9, 24, 100, 333, 1024, 4000, 200_000, 17, 64}
	ptrs := make([]Ptr, len(sizes))
	for i, n := range sizes {
		ptrs[i] = mustAlloc(t, h, n)
		fill(t, h, ptrs[i], n, byte(i+1))
	}
	for i, n := range sizes {
		requireFilled(t, h, ptrs[i], n, byte(i+1))
	}
	assertInvariants(t, h)
}

func TestFree_NilAndDoubleFree(t *testing.T) {
	h, mem, rec := newTestHeap(t, vm.MemoryOptions{}, nil)

	require.NoError(t, h.Free(Nil))

	p := mustAlloc(t, h, 100)
	require.NoError(t, h.Free(p))
	require.NoError(t, h.Free(p), "second free is tolerated")

	m := mustAlloc(t, h, 200_000)
	require.NoError(t, h.Free(m))
	require.NoError(t, h.Free(m), "second free of a mapping is tolerated")
	assert.Zero(t, mem.Mappings())

	assert.Empty(t, rec.errs)
	assertInvariants(t, h)
}

func TestFree_DoesNotCoalesce(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)
	a := mustAlloc(t, h, 100)
	mustAlloc(t, h, 100)
	before := len(h.Blocks())

	require.NoError(t, h.Free(a))
	assert.Len(t, h.Blocks(), before)
	assert.Zero(t, h.Stats().CoalesceCount)
}

func TestFree_BadPointer(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)
	p := mustAlloc(t, h, 100)

	require.ErrorIs(t, h.Free(p+1), ErrBadPointer)
	require.ErrorIs(t, h.Free(MakePtr(arenaRegion, 1<<30)), ErrBadPointer)

	m := mustAlloc(t, h, 200_000)
	require.ErrorIs(t, h.Free(m+8), ErrBadPointer)
	require.NoError(t, h.Free(m))
}

func TestCalloc_Zeroes(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	// Dirty a block so that reuse would expose stale bytes.
	a := mustAlloc(t, h, 100)
	fill(t, h, a, 100, 0xff)
	require.NoError(t, h.Free(a))

	p, err := h.Calloc(10, 10)
	require.NoError(t, err)
	assert.Equal(t, a, p)
	requireFilled(t, h, p, 100, 0)

	m, err := h.Calloc(1000, 200)
	require.NoError(t, err)
	assert.True(t, m.Mapped())
	requireFilled(t, h, m, 200_000, 0)

	st := h.Stats()
	assert.Equal(t, 2, st.CallocCalls)
	assertInvariants(t, h)
}

func TestCalloc_InvalidArguments(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	cases := []struct {
		name        string
		count, size int
	}{
		{"zero count", 0, 8},
		{"zero size", 8, 0},
		{"negative count", -1, 8},
		{"negative size", 8, -1},
		{"overflow", math.MaxInt, 2},
		{"product past MaxInt", math.MaxInt/2 + 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := h.Calloc(tc.count, tc.size)
			require.ErrorIs(t, err, ErrInvalidSize)
			assert.Equal(t, Nil, p)
		})
	}
	assert.Zero(t, h.ArenaSize())
}

func TestCalloc_HugeProductRoutesLikeAlloc(t *testing.T) {
	h, _, rec := newTestHeap(t, vm.MemoryOptions{MapLimit: 1 << 20}, nil)

	p, err := h.Calloc(1<<21, 1<<20)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrMapLimit)
	assert.Equal(t, Nil, p)

	p, err = h.Alloc(1 << 41)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrMapLimit)
	assert.Equal(t, Nil, p)

	require.Len(t, rec.errs, 2)
	assert.Zero(t, h.ArenaSize())
}

func TestCalloc_ThresholdMatchesAlloc(t *testing.T) {
	h, mem, _ := newTestHeap(t, vm.MemoryOptions{PageSize: 4096}, nil)

	// Between the page size and the map threshold: arena, like Alloc.
	p, err := h.Calloc(1, 8192)
	require.NoError(t, err)
	assert.False(t, p.Mapped())
	assert.Zero(t, mem.Mappings())
}

func TestCalloc_ZeroMapPageSize(t *testing.T) {
	h, mem, _ := newTestHeap(t, vm.MemoryOptions{PageSize: 4096}, &Config{ZeroMapThreshold: ZeroMapPageSize})

	below, err := h.Calloc(1, 4000)
	require.NoError(t, err)
	assert.False(t, below.Mapped())

	at, err := h.Calloc(1, 4096)
	require.NoError(t, err)
	assert.True(t, at.Mapped())
	assert.Equal(t, 1, mem.Mappings())
	requireFilled(t, h, at, 4096, 0)

	// Alloc keeps the regular threshold.
	assert.False(t, mustAlloc(t, h, 4096).Mapped())
}

func TestBytes_Errors(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)

	_, err := h.Bytes(Nil)
	require.ErrorIs(t, err, ErrBadPointer)

	p := mustAlloc(t, h, 10)
	require.NoError(t, h.Free(p))
	_, err = h.Bytes(p)
	require.ErrorIs(t, err, ErrNotAllocated)

	m := mustAlloc(t, h, 200_000)
	require.NoError(t, h.Free(m))
	_, err = h.Bytes(m)
	require.ErrorIs(t, err, ErrNotAllocated)
}

func TestProviderFailure_Arena(t *testing.T) {
	h, _, rec := newTestHeap(t, vm.MemoryOptions{ArenaLimit: 4096}, nil)

	p, err := h.Alloc(10)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrArenaExhausted)
	assert.Equal(t, Nil, p)
	require.Len(t, rec.errs, 1)
	assert.Same(t, err, rec.errs[0])
	assertInvariants(t, h)
}

func TestProviderFailure_Map(t *testing.T) {
	h, _, rec := newTestHeap(t, vm.MemoryOptions{MapLimit: 1 << 17}, nil)

	p := mustAlloc(t, h, 100_000)
	_, err := h.Alloc(200_000)
	require.ErrorIs(t, err, vm.ErrMapLimit)
	require.Len(t, rec.errs, 1)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "map", perr.Op)
	assert.Equal(t, 200_032, perr.Size)

	require.NoError(t, h.Free(p))
}

func TestProviderFailure_HugeRequest(t *testing.T) {
	h, mem, rec := newTestHeap(t, vm.MemoryOptions{}, nil)

	p, err := h.Alloc(1 << 50)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrMapLimit)
	assert.Equal(t, Nil, p)
	require.Len(t, rec.errs, 1)
	assert.Zero(t, mem.Mappings())

	// The same size routed to the arena stops at the offset limit.
	h2, _, rec2 := newTestHeap(t, vm.MemoryOptions{}, &Config{MapThreshold: math.MaxInt})
	p, err = h2.Alloc(1 << 50)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrArenaExhausted)
	assert.Equal(t, Nil, p)
	require.Len(t, rec2.errs, 1)
	assert.Zero(t, h2.ArenaSize())

	// Both heaps still serve ordinary requests.
	mustAlloc(t, h, 100)
	mustAlloc(t, h2, 100)
	assertInvariants(t, h)
	assertInvariants(t, h2)
}

func TestProviderFailure_Unmap(t *testing.T) {
	h, mem, rec := newTestHeap(t, vm.MemoryOptions{}, nil)

	p := mustAlloc(t, h, 200_000)
	require.NoError(t, mem.Close())

	err := h.Free(p)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, vm.ErrClosed)
	require.Len(t, rec.errs, 1)
}

func TestRegionID_RecyclesReleasedIDs(t *testing.T) {
	h, _, _ := newTestHeap(t, vm.MemoryOptions{}, nil)
	h.nextID = maxRegionID - 1

	a := mustAlloc(t, h, 200_000)
	assert.Equal(t, uint32(maxRegionID), a.Region())

	b := mustAlloc(t, h, 200_000)
	assert.Equal(t, uint32(1), b.Region(), "ids wrap once the space is used up")

	require.NoError(t, h.Free(b))
	c := mustAlloc(t, h, 200_000)
	assert.Equal(t, uint32(2), c.Region(), "search resumes after the last recycled id")
}

func TestPtr_String(t *testing.T) {
	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "arena+0x20", MakePtr(arenaRegion, 0x20).String())
	assert.Equal(t, "map3+0x20", MakePtr(3, 0x20).String())
	assert.True(t, MakePtr(3, 0x20).Mapped())
	assert.False(t, MakePtr(arenaRegion, 0x20).Mapped())
}
