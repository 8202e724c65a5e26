package heap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/osmem/vm"
)

// fatalRecorder collects errors passed to Config.OnFatal instead of exiting.
type fatalRecorder struct {
	errs []error
}

func (r *fatalRecorder) handle(err error) { r.errs = append(r.errs, err) }

// newTestHeap builds a heap over a Memory provider. cfg may be nil; its
// OnFatal is always replaced by a recorder.
func newTestHeap(t *testing.T, opts vm.MemoryOptions, cfg *Config) (*Heap, *vm.Memory, *fatalRecorder) {
	t.Helper()
	mem := vm.NewMemory(opts)
	t.Cleanup(func() { mem.Close() })

	var c Config
	if cfg != nil {
		c = *cfg
	}
	rec := &fatalRecorder{}
	c.OnFatal = rec.handle
	return New(mem, &c), mem, rec
}

// setupGrowCounter counts arena extensions from now on.
func setupGrowCounter(h *Heap) *int {
	count := 0
	h.onGrow = func(int) { count++ }
	return &count
}

func mustAlloc(t *testing.T, h *Heap, size int) Ptr {
	t.Helper()
	p, err := h.Alloc(size)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)
	return p
}

func fill(t *testing.T, h *Heap, p Ptr, n int, v byte) {
	t.Helper()
	b, err := h.Bytes(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), n)
	copy(b, bytes.Repeat([]byte{v}, n))
}

func requireFilled(t *testing.T, h *Heap, p Ptr, n int, v byte) {
	t.Helper()
	b, err := h.Bytes(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), n)
	for i := range n {
		if b[i] != v {
			require.Failf(t, "payload mismatch", "%s byte %d = %#x, want %#x", p, i, b[i], v)
		}
	}
}

func assertInvariants(t *testing.T, h *Heap) {
	t.Helper()
	require.NoError(t, h.Verify())
}
