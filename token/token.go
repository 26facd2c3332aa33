// Package token implements a reference-counted "in-flight operation" guard:
// a Counter hands out Ref values, each of which must be released exactly
// once, and a caller-supplied callback fires the instant the count returns
// to zero. IoContext and the connection/server package use this to know
// when it's safe to tear down a socket or a fd entry: as long as any
// in-flight chain still holds a Ref, the thing it refers to must stay
// alive.
package token

import "sync"

// Counter tracks the number of live Refs handed out. The zero value is a
// valid counter starting at zero.
type Counter struct {
	mu     sync.Mutex
	n      int
	onZero func()
	armed  bool // onZero has been set at least once
}

// Ref is a single drop-guard token. Release must be called exactly once;
// calling it twice panics, since that would double-decrement the counter
// and fire the zero callback early or twice.
type Ref struct {
	c        *Counter
	released bool
}

// Take hands out a new Ref and increments the live count.
func (c *Counter) Take() Ref {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return Ref{c: c}
}

// Count returns the current number of live refs.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// SetCallback installs f to run exactly once, the moment the live count
// next reaches zero after being above zero. If the count is already zero
// when SetCallback is called, f runs synchronously right away (mirroring
// the "already idle" case the conn package's ending-connection removal
// relies on).
func (c *Counter) SetCallback(f func()) {
	c.mu.Lock()
	zero := c.n == 0
	if zero {
		// fired right away below; not kept for a later zero crossing.
		c.onZero = nil
	} else {
		c.onZero = f
	}
	c.armed = true
	c.mu.Unlock()
	if zero && f != nil {
		f()
	}
}

// Release returns the Ref to its counter. If this was the last live Ref
// and a zero-callback is armed, the callback fires synchronously from
// within Release.
func (r *Ref) Release() {
	if r.c == nil {
		return
	}
	if r.released {
		panic("token: Ref released twice")
	}
	r.released = true
	c := r.c
	c.mu.Lock()
	c.n--
	if c.n < 0 {
		c.mu.Unlock()
		panic("token: Counter decremented below zero")
	}
	fireNow := c.n == 0 && c.armed && c.onZero != nil
	var cb func()
	if fireNow {
		cb = c.onZero
		// single-fire: don't call it again on a later zero crossing unless
		// the caller re-arms via SetCallback.
		c.onZero = nil
	}
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}
