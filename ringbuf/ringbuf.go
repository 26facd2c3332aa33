// Package ringbuf implements a fixed-capacity generic ring buffer, the
// short-push container ring_buffer_connection_t drains into on every
// socket read so a receive that outpaces the consumer is observable
// (PushBack returns how much it actually accepted) rather than silently
// dropped or silently resized.
package ringbuf

import "github.com/flowkit/aio/mtcheck"

// Buffer is a fixed-capacity ring buffer over T. The zero value is not
// usable; construct with New. Single-producer/single-consumer usage is
// assumed (callers synchronize externally for shared access); an
// optional mtcheck.Guard, installed via EnableMTCheck, catches a caller
// bug that violates that assumption without costing anything when unset.
type Buffer[T any] struct {
	data  []T
	head  int // index of the oldest element
	count int

	guard *mtcheck.Guard
}

// New returns an empty Buffer with the given fixed capacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// EnableMTCheck installs an mtcheck.Guard labeled name, so that the
// mutating operations (PushBack, PopFront) assert exclusive access and
// the read-only At asserts no concurrent mutation is in progress. Never
// required for correctness; purely a debugging aid.
func (b *Buffer[T]) EnableMTCheck(name string) {
	b.guard = mtcheck.NewGuard(name)
}

// Capacity returns the buffer's fixed capacity.
func (b *Buffer[T]) Capacity() int { return len(b.data) }

// Size returns the number of elements currently held.
func (b *Buffer[T]) Size() int { return b.count }

// Full reports whether the buffer is at capacity.
func (b *Buffer[T]) Full() bool { return b.count == len(b.data) }

// Empty reports whether the buffer holds no elements.
func (b *Buffer[T]) Empty() bool { return b.count == 0 }

// PushBack appends as many elements of src as fit and returns that count.
// A return value less than len(src) means the buffer filled up partway
// through — the caller (a connection's read loop) is expected to treat
// that as "buffer full" and react (e.g. call its on_buffer_full hook)
// rather than assume every byte landed.
func (b *Buffer[T]) PushBack(src []T) int {
	defer b.guard.EnterWrite()()
	free := len(b.data) - b.count
	n := len(src)
	if n > free {
		n = free
	}
	tail := (b.head + b.count) % len(b.data)
	for i := 0; i < n; i++ {
		b.data[(tail+i)%len(b.data)] = src[i]
	}
	b.count += n
	return n
}

// PopFront removes up to len(dst) elements into dst, oldest first, and
// returns how many were copied.
func (b *Buffer[T]) PopFront(dst []T) int {
	defer b.guard.EnterWrite()()
	n := len(dst)
	if n > b.count {
		n = b.count
	}
	for i := 0; i < n; i++ {
		dst[i] = b.data[(b.head+i)%len(b.data)]
	}
	b.head = (b.head + n) % len(b.data)
	b.count -= n
	return n
}

// At returns the i-th element (0 = oldest currently held).
func (b *Buffer[T]) At(i int) T {
	defer b.guard.EnterRead()()
	if i < 0 || i >= b.count {
		panic("ringbuf: index out of range")
	}
	return b.data[(b.head+i)%len(b.data)]
}

// Clear drops every held element without changing capacity.
func (b *Buffer[T]) Clear() {
	b.head, b.count = 0, 0
}
