package heap

import (
	"context"
	"log/slog"
	"math"
	"math/bits"

	"github.com/joshuapare/osmem/internal/format"
	"github.com/joshuapare/osmem/vm"
)

// Heap is a single-threaded allocator over one vm.Provider.
type Heap struct {
	p        vm.Provider
	cfg      Config
	log      *slog.Logger
	debug    bool
	pageSize int

	// Arena block list, by header offset. format.NoBlock when empty.
	head        int
	tail        int
	initialized bool

	// Live mappings by region id.
	maps    map[uint32][]byte
	nextID  uint32
	recycle uint32

	stats Stats

	// Test hook: called after every arena extension (nil in production)
	onGrow func(int)
}

// New returns a heap drawing memory from p. cfg may be nil for DefaultConfig.
// The page size is read from p once, here.
func New(p vm.Provider, cfg *Config) *Heap {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c := cfg.withDefaults()
	return &Heap{
		p:        p,
		cfg:      c,
		log:      c.Logger,
		debug:    c.Logger.Enabled(context.Background(), slog.LevelDebug),
		pageSize: p.PageSize(),
		head:     format.NoBlock,
		tail:     format.NoBlock,
		maps:     make(map[uint32][]byte),
	}
}

// Alloc returns a pointer to at least size bytes. The payload is not zeroed.
func (h *Heap) Alloc(size int) (Ptr, error) {
	h.stats.AllocCalls++
	if size <= 0 {
		return Nil, ErrInvalidSize
	}
	blk, ok := format.BlockSize(size)
	if !ok {
		return Nil, ErrInvalidSize
	}
	return h.alloc(blk)
}

// alloc routes an aligned block size to a mapping or the arena.
func (h *Heap) alloc(blk int) (Ptr, error) {
	if blk >= h.cfg.MapThreshold {
		return h.mapBlock(blk, false)
	}
	off, err := h.allocSmall(blk)
	if err != nil {
		return Nil, err
	}
	return MakePtr(arenaRegion, off+format.HeaderSize), nil
}

func (h *Heap) allocSmall(blk int) (int, error) {
	// First small request: grow by a whole chunk and keep the excess free.
	if !h.initialized {
		off, err := h.brkBlock(max(h.cfg.InitialChunk, blk))
		if err != nil {
			return format.NoBlock, err
		}
		h.initialized = true
		h.split(off, blk)
		return off, nil
	}

	h.coalesceAll()

	if off := h.bestFit(blk); off != format.NoBlock {
		h.split(off, blk)
		h.block(off).SetStatus(format.StatusAlloc)
		h.stats.Reused++
		return off, nil
	}

	return h.brkBlock(blk)
}

// Calloc returns a pointer to count*size zeroed bytes.
func (h *Heap) Calloc(count, size int) (Ptr, error) {
	h.stats.CallocCalls++
	if count <= 0 || size <= 0 {
		return Nil, ErrInvalidSize
	}
	hi, lo := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || lo > math.MaxInt {
		return Nil, ErrInvalidSize
	}
	n := int(lo)
	blk, ok := format.BlockSize(n)
	if !ok {
		return Nil, ErrInvalidSize
	}

	if blk >= h.zeroMapThreshold() {
		return h.mapBlock(blk, true)
	}

	p, err := h.alloc(blk)
	if err != nil {
		return Nil, err
	}
	clear(h.view(p))
	return p, nil
}

func (h *Heap) zeroMapThreshold() int {
	if h.cfg.ZeroMapThreshold == ZeroMapPageSize {
		return h.pageSize
	}
	return h.cfg.ZeroMapThreshold
}

// Free releases p. Nil and already-free blocks are ignored. Arena blocks are
// only marked free; merging happens on the next allocation. Mapped blocks are
// unmapped immediately.
func (h *Heap) Free(p Ptr) error {
	h.stats.FreeCalls++
	if p == Nil {
		return nil
	}

	if p.Mapped() {
		data, ok := h.maps[p.Region()]
		if !ok {
			// Already unmapped.
			return nil
		}
		if p.Offset() != format.HeaderSize {
			return ErrBadPointer
		}
		return h.unmapBlock(p.Region(), data)
	}

	off, err := h.arenaBlock(p)
	if err != nil {
		return err
	}
	b := h.block(off)
	if b.Status() == format.StatusFree {
		return nil
	}
	b.SetStatus(format.StatusFree)
	return nil
}

// Realloc resizes the block at p to hold size bytes, preserving the first
// min(old, new) payload bytes. It may return a different pointer. A size of
// zero or less frees p and returns Nil; a Nil p behaves like Alloc.
func (h *Heap) Realloc(p Ptr, size int) (Ptr, error) {
	h.stats.ReallocCalls++
	if size <= 0 {
		return Nil, h.Free(p)
	}
	if p == Nil {
		return h.Alloc(size)
	}
	newSize, ok := format.BlockSize(size)
	if !ok {
		return Nil, ErrInvalidSize
	}

	if p.Mapped() {
		if _, ok := h.maps[p.Region()]; !ok {
			return Nil, ErrNotAllocated
		}
		if p.Offset() != format.HeaderSize {
			return Nil, ErrBadPointer
		}
		return h.relocate(p, newSize)
	}

	off, err := h.arenaBlock(p)
	if err != nil {
		return Nil, err
	}
	b := h.block(off)
	if b.Status() == format.StatusFree {
		return Nil, ErrNotAllocated
	}

	if newSize >= h.cfg.MapThreshold {
		return h.relocate(p, newSize)
	}

	if b.Size() >= newSize {
		h.split(off, newSize)
		h.stats.InPlaceResizes++
		return p, nil
	}

	if off == h.tail {
		shortfall := newSize - b.Size()
		if err := h.growTail(shortfall); err != nil {
			return Nil, h.fatal("extend", shortfall, err)
		}
		h.stats.InPlaceResizes++
		return p, nil
	}

	h.mergeForward(off)
	if h.block(off).Size() >= newSize {
		h.split(off, newSize)
		h.stats.InPlaceResizes++
		return p, nil
	}

	return h.relocate(p, newSize)
}

// relocate moves p's payload into a fresh block of blk bytes and frees p.
func (h *Heap) relocate(p Ptr, blk int) (Ptr, error) {
	np, err := h.alloc(blk)
	if err != nil {
		return Nil, err
	}
	// Views are taken after alloc because growth may move the arena.
	n := copy(h.view(np), h.view(p))
	h.stats.Relocations++
	if h.debug {
		h.log.Debug("relocate", "from", p.String(), "to", np.String(), "copied", n)
	}
	if err := h.Free(p); err != nil {
		return Nil, err
	}
	return np, nil
}

// Bytes returns the payload of the live block at p. The slice is valid until
// the next call that may grow the arena.
func (h *Heap) Bytes(p Ptr) ([]byte, error) {
	if err := h.checkLive(p); err != nil {
		return nil, err
	}
	return h.view(p), nil
}

// UsableSize returns the payload length of the live block at p, which may
// exceed the size originally requested.
func (h *Heap) UsableSize(p Ptr) (int, error) {
	if err := h.checkLive(p); err != nil {
		return 0, err
	}
	return len(h.view(p)), nil
}

func (h *Heap) checkLive(p Ptr) error {
	if p == Nil {
		return ErrBadPointer
	}
	if p.Mapped() {
		if _, ok := h.maps[p.Region()]; !ok {
			return ErrNotAllocated
		}
		if p.Offset() != format.HeaderSize {
			return ErrBadPointer
		}
		return nil
	}
	off, err := h.arenaBlock(p)
	if err != nil {
		return err
	}
	if h.block(off).Status() == format.StatusFree {
		return ErrNotAllocated
	}
	return nil
}

// view returns p's payload without validation.
func (h *Heap) view(p Ptr) []byte {
	if p.Mapped() {
		return format.At(h.maps[p.Region()], 0).Payload()
	}
	return h.block(p.Offset() - format.HeaderSize).Payload()
}

// ArenaSize returns the current arena break.
func (h *Heap) ArenaSize() int { return len(h.p.Bytes()) }

// fatal wraps a provider failure, logs it and hands it to the fatal handler.
func (h *Heap) fatal(op string, size int, err error) error {
	perr := &ProviderError{Op: op, Size: size, Err: err}
	h.log.Error("provider failure", "op", op, "size", size, "error", err)
	h.cfg.OnFatal(perr)
	return perr
}
