package ioctx

import (
	"sync"

	"github.com/flowkit/aio/id"
	"github.com/flowkit/aio/internal/uring"
)

// RegisterFakeSocket tracks a synthetic connected-socket fd against c
// without any real syscall, for tests (in this package or others) that
// only need QueueSend/QueueReceive/Close plumbing to work against a
// MockRing. The returned id has no backing OS descriptor (its fd is -1);
// closing it still runs close(2) on -1, which fails harmlessly with EBADF,
// and a real Ring would be handed that bogus fd for any queued op.
func (c *Context) RegisterFakeSocket() id.ID {
	return c.registerFD(&fdEntry{osFD: -1, kind: fdConnSocket})
}

// MockRing is a scriptable uring.Ring for tests that need to drive
// IoContext's dispatch logic without real file descriptors. Each Prepare*
// call records an invocation; Complete queues the caller-chosen Result for
// the next WaitCompletions/PeekCompletions call, mirroring go-ublk's own hand-rolled fakes for testing the queue
// runner without a kernel.
type MockRing struct {
	mu       sync.Mutex
	Prepared []MockPrepared
	queued   []uring.Result
	cancels  []uint64
	closed   bool
}

// MockPrepared records one Prepare* invocation for assertions.
type MockPrepared struct {
	Op       string
	FD       int
	Buf      []byte
	Offset   int64
	UserData uint64
}

// NewMockRing returns an empty MockRing.
func NewMockRing() *MockRing {
	return &MockRing{}
}

func (m *MockRing) record(p MockPrepared) {
	m.mu.Lock()
	m.Prepared = append(m.Prepared, p)
	m.mu.Unlock()
}

// Complete schedules res to be delivered on the next completion drain.
func (m *MockRing) Complete(res uring.Result) {
	m.mu.Lock()
	m.queued = append(m.queued, res)
	m.mu.Unlock()
}

func (m *MockRing) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MockRing) PrepareRead(fd int, buf []byte, offset int64, userData uint64) error {
	m.record(MockPrepared{Op: "read", FD: fd, Buf: buf, Offset: offset, UserData: userData})
	return nil
}

func (m *MockRing) PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error {
	m.record(MockPrepared{Op: "write", FD: fd, Buf: buf, Offset: offset, UserData: userData})
	return nil
}

func (m *MockRing) PrepareSend(fd int, buf []byte, userData uint64) error {
	m.record(MockPrepared{Op: "send", FD: fd, Buf: buf, UserData: userData})
	return nil
}

func (m *MockRing) PrepareRecv(fd int, buf []byte, userData uint64) error {
	m.record(MockPrepared{Op: "recv", FD: fd, Buf: buf, UserData: userData})
	return nil
}

func (m *MockRing) PrepareAccept(fd int, userData uint64) error {
	m.record(MockPrepared{Op: "accept", FD: fd, UserData: userData})
	return nil
}

func (m *MockRing) PrepareMultishotAccept(fd int, userData uint64) error {
	m.record(MockPrepared{Op: "multishot_accept", FD: fd, UserData: userData})
	return nil
}

func (m *MockRing) PrepareClose(fd int, userData uint64) error {
	m.record(MockPrepared{Op: "close", FD: fd, UserData: userData})
	return nil
}

func (m *MockRing) Submit() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prepared), nil
}

func (m *MockRing) WaitCompletions(minComplete int) ([]uring.Result, error) {
	return m.PeekCompletions(len(m.queued)), nil
}

func (m *MockRing) PeekCompletions(max int) []uring.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > len(m.queued) {
		max = len(m.queued)
	}
	out := m.queued[:max]
	m.queued = m.queued[max:]
	return out
}

func (m *MockRing) CancelUserData(userData uint64) error {
	m.mu.Lock()
	m.cancels = append(m.cancels, userData)
	m.mu.Unlock()
	return nil
}

var _ uring.Ring = (*MockRing)(nil)
