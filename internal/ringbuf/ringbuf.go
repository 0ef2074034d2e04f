// Package ringbuf provides a fixed-capacity ring that keeps the most recent
// values and overwrites the oldest when full.
package ringbuf

import "sync"

// Ring is safe for concurrent producers and readers.
type Ring[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    uint64 // next write position
	dropped uint64 // values overwritten
}

// New creates a ring. capacity is rounded up to the next power of two; minimum 2.
func New[T any](capacity int) *Ring[T] {
	c := nextPow2(capacity)
	if c < 2 {
		c = 2
	}
	return &Ring[T]{buf: make([]T, c)}
}

// Push appends v, overwriting the oldest value if the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head >= uint64(len(r.buf)) {
		r.dropped++
	}
	r.buf[r.head&uint64(len(r.buf)-1)] = v
	r.head++
}

// Snapshot returns the held values, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.lenLocked()
	out := make([]T, 0, n)
	mask := uint64(len(r.buf) - 1)
	for i := r.head - uint64(n); i < r.head; i++ {
		out = append(out, r.buf[i&mask])
	}
	return out
}

// Len returns the number of held values.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

func (r *Ring[T]) lenLocked() int {
	if r.head < uint64(len(r.buf)) {
		return int(r.head)
	}
	return len(r.buf)
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Dropped returns how many values have been overwritten.
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
