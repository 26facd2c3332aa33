package conn

import (
	"encoding/binary"
	"testing"

	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/rawdata"
	"github.com/stretchr/testify/require"
)

type testHeaderHandler struct {
	c         *Connection
	packets   [][]byte
	oversized bool
	sizeLimit uint32
}

func (h *testHeaderHandler) Connection() *Connection { return h.c }
func (h *testHeaderHandler) OnConnectionSetup()       {}
func (h *testHeaderHandler) HeaderSize() uint32       { return 4 }
func (h *testHeaderHandler) IsHeaderValid(header []byte) bool {
	return len(header) == 4
}
func (h *testHeaderHandler) SizeOfData(header []byte) uint32 {
	return binary.LittleEndian.Uint32(header)
}
func (h *testHeaderHandler) OnPacket(header []byte, data rawdata.Data) {
	h.packets = append(h.packets, append([]byte{}, data.Bytes()...))
}
func (h *testHeaderHandler) OnPacketOversized(header []byte) { h.oversized = true }

func TestHeaderConnReadsHeaderThenPayload(t *testing.T) {
	ctx, ring := newTestContext(t)
	c := &Connection{IOCtx: ctx, Socket: ctx.RegisterFakeSocket()}
	h := &testHeaderHandler{c: c}

	StartHeaderReadLoop(h)
	require.Len(t, ring.Prepared, 1, "header read should be staged first")

	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, 5)
	copy(ring.Prepared[0].Buf, header)
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 4})
	require.NoError(t, ctx.Process())

	require.Len(t, ring.Prepared, 2, "payload read should now be staged")
	copy(ring.Prepared[1].Buf, []byte("hello"))
	ring.Complete(uring.Result{UserData: ring.Prepared[1].UserData, Res: 5})
	require.NoError(t, ctx.Process())

	require.Equal(t, [][]byte{[]byte("hello")}, h.packets)
	require.Len(t, ring.Prepared, 3, "next header read should already be queued")
}

func TestHeaderConnClosesOnOversizedPacket(t *testing.T) {
	ctx, ring := newTestContext(t)
	c := &Connection{IOCtx: ctx, Socket: ctx.RegisterFakeSocket()}
	h := &testHeaderHandler{c: c}

	StartHeaderReadLoop(h)
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, MaxPacketSize+1)
	copy(ring.Prepared[0].Buf, header)
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 4})
	require.NoError(t, ctx.Process())

	require.True(t, h.oversized)
	require.True(t, c.IsClosed())
}
