// Package id provides the opaque 64-bit handle type shared by the rest of
// the toolkit. Values are either a sentinel (None, Invalid) or a handle
// minted by an allocator (IoContext's fd table, a connection table, ...);
// nothing outside the minting allocator should construct one directly.
package id

import "hash/fnv"

// ID is an opaque handle. The zero value is None.
type ID uint64

const (
	// None identifies the absence of a handle.
	None ID = 0

	// Invalid marks a handle that was never valid or has since been
	// released; comparing against it (rather than None) lets an allocator
	// distinguish "never assigned" from "assigned then torn down".
	Invalid ID = ^ID(0)
)

func (i ID) String() string {
	switch i {
	case None:
		return "id.none"
	case Invalid:
		return "id.invalid"
	default:
		return "id." + uitoa(uint64(i))
	}
}

// Valid reports whether i is neither None nor Invalid.
func (i ID) Valid() bool {
	return i != None && i != Invalid
}

// FromString hashes name into an ID. Two calls with the same name always
// produce the same ID; this is how callers mint stable handles for
// human-meaningful keys (a file path, a debug name) rather than relying on
// an allocator's counter.
func FromString(name string) ID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	v := h.Sum64()
	if ID(v) == None || ID(v) == Invalid {
		v++
	}
	return ID(v)
}

// Combine folds b into a, producing a new ID that depends on both. Used to
// derive a sub-handle (e.g. a connection id) from a parent handle plus a
// per-instance counter without a second hash pass.
func Combine(a, b ID) ID {
	const prime = 0x9e3779b97f4a7c15
	v := uint64(a) ^ (uint64(b) + prime + (uint64(a) << 6) + (uint64(a) >> 2))
	if ID(v) == None || ID(v) == Invalid {
		v++
	}
	return ID(v)
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Allocator mints monotonically increasing, non-colliding IDs for a single
// owner (e.g. IoContext's fd table). It never reuses a value even after
// release, so a stale handle held past its lifetime reliably misses any
// future lookup instead of aliasing a newer one.
type Allocator struct {
	next uint64
}

// NewAllocator returns an Allocator seeded so its first Next() never
// collides with None or Invalid.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns the next handle in sequence.
func (a *Allocator) Next() ID {
	v := a.next
	a.next++
	if ID(v) == None || ID(v) == Invalid {
		v = a.next
		a.next++
	}
	return ID(v)
}
