package uring

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollRing is the portable Ring backend: every Prepare* call is staged and
// Submit() hands each staged op to its own goroutine which performs the
// matching blocking syscall and posts a Result back on a shared channel.
// It trades io_uring's batched-syscall efficiency for portability — used
// on non-Linux platforms and as the default in tests that would rather not
// depend on a real kernel ring.
type pollRing struct {
	mu        sync.Mutex
	pending   []pendingOp
	completed chan Result
	cancels   map[uint64]chan struct{}
}

type opKind int

const (
	opRead opKind = iota
	opWrite
	opSend
	opRecv
	opAccept
	opMultishotAccept
	opClose
)

type pendingOp struct {
	kind     opKind
	fd       int
	buf      []byte
	offset   int64
	userData uint64
}

func newPollRing(entries uint32) *pollRing {
	if entries == 0 {
		entries = 256
	}
	return &pollRing{
		completed: make(chan Result, entries),
		cancels:   make(map[uint64]chan struct{}),
	}
}

func (r *pollRing) Close() error { return nil }

func (r *pollRing) stage(p pendingOp) error {
	r.mu.Lock()
	r.pending = append(r.pending, p)
	r.mu.Unlock()
	return nil
}

func (r *pollRing) PrepareRead(fd int, buf []byte, offset int64, userData uint64) error {
	return r.stage(pendingOp{kind: opRead, fd: fd, buf: buf, offset: offset, userData: userData})
}

func (r *pollRing) PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error {
	return r.stage(pendingOp{kind: opWrite, fd: fd, buf: buf, offset: offset, userData: userData})
}

func (r *pollRing) PrepareSend(fd int, buf []byte, userData uint64) error {
	return r.stage(pendingOp{kind: opSend, fd: fd, buf: buf, userData: userData})
}

func (r *pollRing) PrepareRecv(fd int, buf []byte, userData uint64) error {
	return r.stage(pendingOp{kind: opRecv, fd: fd, buf: buf, userData: userData})
}

func (r *pollRing) PrepareAccept(fd int, userData uint64) error {
	return r.stage(pendingOp{kind: opAccept, fd: fd, userData: userData})
}

func (r *pollRing) PrepareMultishotAccept(fd int, userData uint64) error {
	return r.stage(pendingOp{kind: opMultishotAccept, fd: fd, userData: userData})
}

func (r *pollRing) PrepareClose(fd int, userData uint64) error {
	return r.stage(pendingOp{kind: opClose, fd: fd, userData: userData})
}

func (r *pollRing) Submit() (int, error) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, p := range batch {
		go r.run(p)
	}
	return len(batch), nil
}

func (r *pollRing) run(p pendingOp) {
	switch p.kind {
	case opRead:
		n, err := unix.Pread(p.fd, p.buf, p.offset)
		r.completed <- syscallResult(p.userData, n, err)
	case opWrite:
		n, err := unix.Pwrite(p.fd, p.buf, p.offset)
		r.completed <- syscallResult(p.userData, n, err)
	case opSend:
		n, err := unix.Write(p.fd, p.buf)
		r.completed <- syscallResult(p.userData, n, err)
	case opRecv:
		n, err := unix.Read(p.fd, p.buf)
		r.completed <- syscallResult(p.userData, n, err)
	case opAccept:
		nfd, _, err := unix.Accept(p.fd)
		r.completed <- syscallResult(p.userData, nfd, err)
	case opMultishotAccept:
		r.runMultishotAccept(p)
	case opClose:
		r.cancelChildren(p.userData)
		err := unix.Close(p.fd)
		r.completed <- syscallResult(p.userData, 0, err)
	}
}

// runMultishotAccept emulates io_uring's real kernel re-arm: keep accepting
// until the listening fd errors (closed) or CancelUserData fires, posting
// one Result per accepted connection with More == true, and a final
// Result with More == false when the loop ends.
func (r *pollRing) runMultishotAccept(p pendingOp) {
	cancel := make(chan struct{})
	r.mu.Lock()
	r.cancels[p.userData] = cancel
	r.mu.Unlock()

	for {
		select {
		case <-cancel:
			r.completed <- Result{UserData: p.userData, Res: -int32(unix.ECANCELED), More: false}
			return
		default:
		}
		nfd, _, err := unix.Accept(p.fd)
		if err != nil {
			r.completed <- Result{UserData: p.userData, Res: -int32(err.(unix.Errno)), More: false}
			return
		}
		r.completed <- Result{UserData: p.userData, Res: int32(nfd), More: true}
	}
}

func (r *pollRing) cancelChildren(userData uint64) {
	r.mu.Lock()
	c, ok := r.cancels[userData]
	if ok {
		delete(r.cancels, userData)
	}
	r.mu.Unlock()
	if ok {
		close(c)
	}
}

func (r *pollRing) CancelUserData(userData uint64) error {
	r.cancelChildren(userData)
	return nil
}

func (r *pollRing) WaitCompletions(minComplete int) ([]Result, error) {
	if minComplete <= 0 {
		minComplete = 1
	}
	out := make([]Result, 0, minComplete)
	for len(out) < minComplete {
		out = append(out, <-r.completed)
	}
	for {
		select {
		case res := <-r.completed:
			out = append(out, res)
		default:
			return out, nil
		}
	}
}

func (r *pollRing) PeekCompletions(max int) []Result {
	var out []Result
	for len(out) < max {
		select {
		case res := <-r.completed:
			out = append(out, res)
		default:
			return out
		}
	}
	return out
}

func syscallResult(userData uint64, n int, err error) Result {
	if err != nil {
		errno, ok := err.(unix.Errno)
		if !ok {
			return Result{UserData: userData, Res: -int32(unix.EIO)}
		}
		return Result{UserData: userData, Res: -int32(errno)}
	}
	return Result{UserData: userData, Res: int32(n)}
}
