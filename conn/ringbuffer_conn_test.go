package conn

import (
	"testing"

	"github.com/flowkit/aio/internal/uring"
	"github.com/stretchr/testify/require"
)

type testRingHandler struct {
	c           *Connection
	rb          *RingBufferConn
	reads       []string
	bufferFull  bool
	setupCalled bool
}

func (h *testRingHandler) Connection() *Connection { return h.c }
func (h *testRingHandler) OnConnectionSetup()       { h.setupCalled = true }
func (h *testRingHandler) OnRead(startOffset, size uint32) {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = h.rb.ReadBuffer.At(int(startOffset) + i)
	}
	h.reads = append(h.reads, string(buf))
}
func (h *testRingHandler) OnBufferFull() {
	h.bufferFull = true
	DefaultOnBufferFull(h)
}

func TestRingBufferConnDeliversChunks(t *testing.T) {
	ctx, ring := newTestContext(t)
	c := &Connection{IOCtx: ctx, Socket: ctx.RegisterFakeSocket()}
	h := &testRingHandler{c: c, rb: NewRingBufferConn(1024)}

	h.rb.StartAsyncRead(h)
	require.Len(t, ring.Prepared, 1)

	copy(ring.Prepared[0].Buf, []byte("hello"))
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 5})
	require.NoError(t, ctx.Process())

	require.Equal(t, []string{"hello"}, h.reads)
	require.Len(t, ring.Prepared, 2, "loop should have resubmitted another receive")
}

func TestRingBufferConnBufferFullClosesByDefault(t *testing.T) {
	ctx, ring := newTestContext(t)
	c := &Connection{IOCtx: ctx, Socket: ctx.RegisterFakeSocket()}
	h := &testRingHandler{c: c, rb: NewRingBufferConn(4)}

	h.rb.StartAsyncRead(h)
	require.Len(t, ring.Prepared, 1)

	copy(ring.Prepared[0].Buf, []byte("hello world"))
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 11})
	require.NoError(t, ctx.Process())

	require.True(t, h.bufferFull)
	require.True(t, c.IsClosed())
}
