//go:build linux

package uring

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// ioURingRing is the real backend, grounded on the pawelgaczynski/giouring
// binding go.mod already declares. SQE preparation mirrors the shape used
// throughout the retrieval pack's own io_uring event loop (CreateRing,
// GetSQE, Prepare*, SubmitAndWait, PeekBatchCQE/CQAdvance): stage a prep
// closure per call, then flush every staged SQE with one io_uring_enter.
type ioURingRing struct {
	mu      sync.Mutex
	ring    *giouring.Ring
	pending []func(*giouring.SubmissionQueueEntry)
}

func newPlatformRing(entries uint32) (Ring, error) {
	if entries == 0 {
		entries = 256
	}
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, fmt.Errorf("create io_uring: %w", err)
	}
	return &ioURingRing{ring: ring}, nil
}

func (r *ioURingRing) Close() error {
	r.ring.QueueExit()
	return nil
}

func (r *ioURingRing) enqueue(prep func(*giouring.SubmissionQueueEntry)) {
	r.mu.Lock()
	r.pending = append(r.pending, prep)
	r.mu.Unlock()
}

func ptr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

func (r *ioURingRing) PrepareRead(fd int, buf []byte, offset int64, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareRead(fd, ptr(buf), uint32(len(buf)), uint64(offset))
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareWrite(fd, ptr(buf), uint32(len(buf)), uint64(offset))
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) PrepareSend(fd int, buf []byte, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareSend(fd, ptr(buf), uint32(len(buf)), 0)
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) PrepareRecv(fd int, buf []byte, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareRecv(fd, ptr(buf), uint32(len(buf)), 0)
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) PrepareAccept(fd int, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareAccept(fd, 0, 0, 0)
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) PrepareMultishotAccept(fd int, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareMultishotAccept(fd, 0, 0, 0)
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) PrepareClose(fd int, userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareClose(fd)
		sqe.UserData = userData
	})
	return nil
}

func (r *ioURingRing) Submit() (int, error) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	prepared := 0
	for _, prep := range batch {
		sqe := r.ring.GetSQE()
		if sqe == nil {
			if _, err := r.ring.Submit(); err != nil {
				return prepared, err
			}
			sqe = r.ring.GetSQE()
			if sqe == nil {
				return prepared, fmt.Errorf("uring: submission queue full")
			}
		}
		prep(sqe)
		prepared++
	}
	if prepared == 0 {
		return 0, nil
	}
	n, err := r.ring.Submit()
	return int(n), err
}

func (r *ioURingRing) WaitCompletions(minComplete int) ([]Result, error) {
	if minComplete <= 0 {
		minComplete = 1
	}
	if _, err := r.ring.SubmitAndWait(uint32(minComplete)); err != nil {
		return nil, err
	}
	return r.drainCQEs(), nil
}

func (r *ioURingRing) PeekCompletions(max int) []Result {
	out := r.drainCQEs()
	if len(out) > max {
		return out[:max]
	}
	return out
}

func (r *ioURingRing) drainCQEs() []Result {
	const batchSize = 64
	var out []Result
	cqes := make([]*giouring.CompletionQueueEvent, batchSize)
	for {
		n := r.ring.PeekBatchCQE(cqes)
		for _, cqe := range cqes[:n] {
			out = append(out, Result{
				UserData: cqe.UserData,
				Res:      cqe.Res,
				More:     cqe.Flags&giouring.CQEFMore != 0,
			})
		}
		r.ring.CQAdvance(n)
		if n < uint32(batchSize) {
			return out
		}
	}
}

func (r *ioURingRing) CancelUserData(userData uint64) error {
	r.enqueue(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareCancel64(userData, 0)
		sqe.UserData = 0
	})
	_, err := r.Submit()
	return err
}
