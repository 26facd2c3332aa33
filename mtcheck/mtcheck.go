// Package mtcheck is a debug-only assertion shim: it does not enforce
// anything on its own, it just gives callers a cheap way to assert
// "exclusive writer, any number of concurrent readers" on a container and
// get a clear panic instead of a silent data race if that invariant is
// ever violated by a caller bug. It is not load-bearing for correctness —
// a caller that never installs a Guard behaves identically, just without
// the early panic. Grounded on original_source/mt_check/mt_check_base.hpp's
// mt_checker_base (enter_read_section/enter_write_section). Write entry is
// not reentrant: a second EnterWrite panics even from the same goroutine.
package mtcheck

import (
	"fmt"
	"sync/atomic"
)

// Guard tracks concurrent entry into a region with reader/writer
// semantics: any number of readers may hold the region simultaneously,
// but a writer requires exclusive access against both readers and other
// writers. A nil *Guard is a no-op, so embedding one in a struct and
// leaving it unset costs nothing.
type Guard struct {
	// state packs a writer flag (bit 30) and a reader count (low 30 bits),
	// mirroring mt_checker_base's single packed atomic<uint64_t> counters.
	state atomic.Int32
	name  string
}

const writerBit = int32(1) << 30

// NewGuard returns a Guard labeled name, used only in panic messages.
func NewGuard(name string) *Guard {
	return &Guard{name: name}
}

// EnterRead marks one more concurrent reader entered; it panics if a
// writer currently holds the region. The returned func leaves the read
// section; call it via defer.
func (g *Guard) EnterRead() func() {
	if g == nil {
		return func() {}
	}
	for {
		cur := g.state.Load()
		if cur&writerBit != 0 {
			panic(fmt.Sprintf("mtcheck: read access on %q while a writer holds it", g.label()))
		}
		if g.state.CompareAndSwap(cur, cur+1) {
			break
		}
	}
	return func() {
		if g.state.Add(-1) < 0 {
			panic(fmt.Sprintf("mtcheck: %q reader count went negative", g.label()))
		}
	}
}

// EnterWrite marks the region entered by a single exclusive writer; it
// panics if any reader or another writer already holds the region. The
// returned func releases the region; call it via defer.
func (g *Guard) EnterWrite() func() {
	if g == nil {
		return func() {}
	}
	if !g.state.CompareAndSwap(0, writerBit) {
		panic(fmt.Sprintf("mtcheck: concurrent access detected on %q", g.label()))
	}
	return func() {
		if !g.state.CompareAndSwap(writerBit, 0) {
			panic(fmt.Sprintf("mtcheck: %q left in an inconsistent state", g.label()))
		}
	}
}

// CheckNoAccess panics if any reader or writer currently holds the
// region; used at destruction time to assert nothing is still using a
// container being torn down.
func (g *Guard) CheckNoAccess() {
	if g == nil {
		return
	}
	if g.state.Load() != 0 {
		panic(fmt.Sprintf("mtcheck: %q destroyed while still in use", g.label()))
	}
}

func (g *Guard) label() string {
	if g == nil || g.name == "" {
		return "<unnamed>"
	}
	return g.name
}
