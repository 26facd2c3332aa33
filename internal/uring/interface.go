// Package uring provides the kernel completion-queue abstraction IoContext
// is built on: a small Ring interface covering the read/write/send/recv/
// accept/close operations the spec's IoContext submits, with two
// implementations — a real io_uring backend (Linux, github.com/
// pawelgaczynski/giouring) and a portable goroutine-backed fallback used
// on other platforms and in tests that don't want a kernel dependency.
package uring

import "syscall"

// Result is a single completion returned by the Ring, independent of which
// backend produced it.
type Result struct {
	// UserData is the opaque tag the caller attached when preparing the op.
	UserData uint64
	// Res is the syscall return value: bytes transferred or a new fd on
	// success, -errno on failure.
	Res int32
	// More is true when additional completions for this same UserData are
	// still to come (a multishot accept's kernel re-arm, or the fallback
	// ring's emulation of it). The final completion for a multishot op
	// always has More == false.
	More bool
}

// Err converts a negative Res into a syscall.Errno, or nil on success.
func (r Result) Err() error {
	if r.Res < 0 {
		return syscall.Errno(-r.Res)
	}
	return nil
}

// Ring is the kernel completion-queue interface spec.md §6 calls for:
// "submit op batch; poll for completion batch", implementable over Linux
// io_uring, Windows IOCP, or kqueue. PrepareX calls stage an SQE-equivalent
// without submitting it; Submit flushes everything staged in one syscall.
type Ring interface {
	// Close releases the ring and any resources it owns.
	Close() error

	PrepareRead(fd int, buf []byte, offset int64, userData uint64) error
	PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error
	PrepareSend(fd int, buf []byte, userData uint64) error
	PrepareRecv(fd int, buf []byte, userData uint64) error
	PrepareAccept(fd int, userData uint64) error
	// PrepareMultishotAccept arms a single SQE that yields one completion
	// per accepted connection until the listening fd is closed or
	// CancelUserData is called, matching io_uring's real multishot accept.
	PrepareMultishotAccept(fd int, userData uint64) error
	PrepareClose(fd int, userData uint64) error

	// Submit flushes all staged Prepare* calls with one syscall and returns
	// how many were submitted.
	Submit() (int, error)

	// WaitCompletions blocks until at least minComplete completions are
	// available (minComplete <= 0 means "at least one"), then drains
	// whatever else is immediately ready without blocking further.
	WaitCompletions(minComplete int) ([]Result, error)

	// PeekCompletions returns up to max completions currently ready,
	// without blocking.
	PeekCompletions(max int) []Result

	// CancelUserData best-effort cancels a still-pending or multishot
	// operation tagged with userData. A cancelled multishot op delivers one
	// final completion with More == false and Res == -ECANCELED.
	CancelUserData(userData uint64) error
}

// New creates the best available Ring for the current platform: a real
// io_uring ring on Linux, falling back to the portable poll-based ring if
// io_uring setup fails (old kernel, seccomp filter, container restriction)
// or the platform doesn't support it at all.
func New(entries uint32) (Ring, error) {
	if ring, err := newPlatformRing(entries); err == nil {
		return ring, nil
	}
	return newPollRing(entries), nil
}
