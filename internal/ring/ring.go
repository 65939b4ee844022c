// Package ring provides a bounded FIFO queue over a fixed backing array.
//
// Ring never allocates on Push or Pop. Capacity changes only through Resize,
// which callers perform outside of their hot paths (client registration and
// teardown in the driver).
package ring

// Ring is a bounded FIFO queue.
//
// Thread safety: Ring is not safe for concurrent use. Callers guard it with
// their own lock.
type Ring[T comparable] struct {
	buf  []T
	head int
	n    int
}

// New creates an empty ring that holds at most capacity elements.
// A negative capacity is treated as zero.
func New[T comparable](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Len returns the number of queued elements.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the maximum number of elements.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push appends v at the tail. It returns false if the ring is full.
func (r *Ring[T]) Push(v T) bool {
	if r.n == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.n)%len(r.buf)] = v
	r.n++
	return true
}

// Pop removes and returns the head element.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v, true
}

// Peek returns the head element without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	return r.buf[r.head], true
}

// Contains reports whether v is queued.
func (r *Ring[T]) Contains(v T) bool {
	for i := 0; i < r.n; i++ {
		if r.buf[(r.head+i)%len(r.buf)] == v {
			return true
		}
	}
	return false
}

// Resize changes the capacity to capacity, keeping queued elements in order.
// It returns false and leaves the ring untouched if capacity is smaller than Len.
func (r *Ring[T]) Resize(capacity int) bool {
	if capacity < r.n {
		return false
	}
	buf := make([]T, capacity)
	for i := 0; i < r.n; i++ {
		buf[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.buf = buf
	r.head = 0
	return true
}
