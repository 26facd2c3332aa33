package ioctx

import (
	"os"

	"github.com/flowkit/aio/internal/queue"
	"golang.org/x/sys/unix"
)

// cancelledErrno is the errno value synthesized into a Result when an
// operation is resolved by CancelAllPendingOperationsFor rather than by
// the kernel.
const cancelledErrno = unix.ECANCELED

// smallBufferThreshold below which allocBuffer skips the pool; see
// internal/queue.GetBuffer's doc comment.
const smallBufferThreshold = 128 * 1024

func closeOSFD(fd int) error {
	return unix.Close(fd)
}

// dupFD duplicates f's underlying descriptor so the fdEntry outlives the
// *os.File wrapper MapFile opened it with.
func dupFD(f *os.File) int {
	newFD, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return -1
	}
	return newFD
}

// statFD returns the current size of the file backing fd.
func statFD(fd int) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}
	return st.Size, nil
}

// allocBuffer returns a buffer of exactly size bytes, pooled for large
// requests and allocated directly for small ones.
func allocBuffer(size uint32) []byte {
	if size == 0 {
		return nil
	}
	if size > smallBufferThreshold {
		return queue.GetBuffer(size)
	}
	return make([]byte, size)
}
