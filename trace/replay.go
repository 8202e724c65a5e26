package trace

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joshuapare/osmem/heap"
)

// Options controls Replay.
type Options struct {
	// Verify runs the allocator's Verify method after every op.
	Verify bool

	// CheckOverlap fails the replay when two live payloads share memory.
	CheckOverlap bool

	// Logger receives one debug record per op. Nil discards.
	Logger *slog.Logger
}

// Result summarizes a replay.
type Result struct {
	Ops       int
	Live      map[string]heap.Ptr // names still bound to a block
	PeakLive  int                 // most names bound at once
	LiveBytes uint64              // arena payload bytes claimed at the end (CheckOverlap only)
}

// Names returns the bound names in sorted order.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Live))
	for name := range r.Live {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Verifier is implemented by allocators that can check their own structure.
type Verifier interface {
	Verify() error
}

// exclusive is implemented by wrappers whose Bytes returns a copy.
type exclusive interface {
	With(fn func(h *heap.Heap) error) error
}

type replayer struct {
	a     heap.Allocator
	opts  Options
	log   *slog.Logger
	names map[string]heap.Ptr
	olap  *overlapChecker
	res   Result
}

// Replay executes ops against a in order and stops at the first error, which
// names the failing line. opts may be nil.
func Replay(ctx context.Context, a heap.Allocator, ops []Op, opts *Options) (*Result, error) {
	r := &replayer{
		a:     a,
		names: make(map[string]heap.Ptr),
	}
	if opts != nil {
		r.opts = *opts
	}
	r.log = r.opts.Logger
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	if r.opts.Verify {
		if _, ok := a.(Verifier); !ok {
			return nil, ErrNoVerifier
		}
	}
	if r.opts.CheckOverlap {
		r.olap = newOverlapChecker()
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return r.result(), err
		}
		if err := r.step(op); err != nil {
			return r.result(), fmt.Errorf("line %d: %s: %w", op.Line, op, err)
		}
		if r.opts.Verify {
			if err := a.(Verifier).Verify(); err != nil {
				return r.result(), fmt.Errorf("line %d: %s: %w", op.Line, op, err)
			}
		}
		r.res.Ops++
		r.res.PeakLive = max(r.res.PeakLive, len(r.names))
	}
	return r.result(), nil
}

func (r *replayer) result() *Result {
	res := r.res
	res.Live = make(map[string]heap.Ptr, len(r.names))
	for k, v := range r.names {
		res.Live[k] = v
	}
	if r.olap != nil {
		res.LiveBytes = r.olap.liveBytes()
	}
	return &res
}

func (r *replayer) step(op Op) error {
	switch op.Kind {
	case KindMalloc:
		p, err := r.a.Alloc(op.N)
		if err != nil {
			return err
		}
		return r.bind(op.Dst, p)

	case KindCalloc:
		p, err := r.a.Calloc(op.N, op.M)
		if err != nil {
			return err
		}
		return r.bind(op.Dst, p)

	case KindRealloc:
		src, err := r.lookup(op.Src)
		if err != nil {
			return err
		}
		p, err := r.a.Realloc(src, op.N)
		if err != nil {
			return err
		}
		r.unbind(op.Src, src)
		if p == heap.Nil {
			delete(r.names, op.Dst)
			return nil
		}
		return r.bind(op.Dst, p)

	case KindFree:
		src, err := r.lookup(op.Src)
		if err != nil {
			return err
		}
		if err := r.a.Free(src); err != nil {
			return err
		}
		r.unbind(op.Src, src)
		return nil

	case KindFill:
		src, err := r.lookup(op.Src)
		if err != nil {
			return err
		}
		return r.payload(src, func(b []byte) error {
			for i := range b {
				b[i] = op.Byte
			}
			return nil
		})

	case KindCheck:
		src, err := r.lookup(op.Src)
		if err != nil {
			return err
		}
		b, err := r.a.Bytes(src)
		if err != nil {
			return err
		}
		if op.N > len(b) {
			return fmt.Errorf("%w: %d bytes requested, payload holds %d", ErrCheckFailed, op.N, len(b))
		}
		for i, v := range b[:op.N] {
			if v != op.Byte {
				return fmt.Errorf("%w: byte %d is %#x, want %#x", ErrCheckFailed, i, v, op.Byte)
			}
		}
		return nil

	case KindVerify:
		v, ok := r.a.(Verifier)
		if !ok {
			return ErrNoVerifier
		}
		return v.Verify()
	}
	return fmt.Errorf("unhandled op kind %s", op.Kind)
}

// lookup resolves a source operand; "" is nil.
func (r *replayer) lookup(name string) (heap.Ptr, error) {
	if name == "" {
		return heap.Nil, nil
	}
	p, ok := r.names[name]
	if !ok {
		return heap.Nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return p, nil
}

func (r *replayer) bind(name string, p heap.Ptr) error {
	r.names[name] = p
	r.log.Debug("bind", "name", name, "ptr", p.String())
	if r.olap == nil {
		return nil
	}
	b, err := r.a.Bytes(p)
	if err != nil {
		return err
	}
	return r.olap.add(p, len(b))
}

// unbind drops name after its block was released or moved. Other names
// aliasing the same block keep their binding.
func (r *replayer) unbind(name string, p heap.Ptr) {
	if name != "" {
		delete(r.names, name)
	}
	if r.olap != nil && p != heap.Nil {
		r.olap.remove(p)
	}
}

// payload runs fn on a writable view of p's payload.
func (r *replayer) payload(p heap.Ptr, fn func([]byte) error) error {
	if x, ok := r.a.(exclusive); ok {
		return x.With(func(h *heap.Heap) error {
			b, err := h.Bytes(p)
			if err != nil {
				return err
			}
			return fn(b)
		})
	}
	b, err := r.a.Bytes(p)
	if err != nil {
		return err
	}
	return fn(b)
}
