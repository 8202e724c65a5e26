package heap

import "sync"

// Locked serializes every operation on a Heap behind one mutex, covering the
// list traversal and any provider call the operation makes.
//
// Bytes copies the payload out, since a view could be invalidated by another
// goroutine's allocation as soon as the lock is released. Use With to work
// on payloads in place.
type Locked struct {
	mu sync.Mutex
	h  *Heap
}

// NewLocked wraps h. h must not be used directly afterwards.
func NewLocked(h *Heap) *Locked {
	return &Locked{h: h}
}

func (l *Locked) Alloc(size int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Alloc(size)
}

func (l *Locked) Calloc(count, size int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Calloc(count, size)
}

func (l *Locked) Realloc(p Ptr, size int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Realloc(p, size)
}

func (l *Locked) Free(p Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Free(p)
}

// Bytes returns a copy of p's payload.
func (l *Locked) Bytes(p Ptr) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.h.Bytes(p)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// With runs fn with exclusive access to the underlying heap.
func (l *Locked) With(fn func(h *Heap) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.h)
}

// Stats returns the heap's statistics.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Stats()
}

// Verify checks the underlying heap's block list.
func (l *Locked) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Verify()
}
