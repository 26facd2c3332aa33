package rpc

import (
	"testing"

	"github.com/flowkit/aio/conn"
	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/rawdata"
	"github.com/stretchr/testify/require"
)

func TestConnHandlerDispatchesReassembledFrame(t *testing.T) {
	defer Unregister("ping")

	var got string
	Register("ping", func(args rawdata.Data) { got = string(args.Bytes()) })

	ctx, ring := newTestContext(t)
	c := conn.NewConnection(ctx, ctx.RegisterFakeSocket())
	adapter := NewAdapter(ConnectionTransport{Connection: c})
	h := NewConnHandler(c, adapter)

	conn.StartHeaderReadLoop(h)
	require.Len(t, ring.Prepared, 1, "header read staged first")

	call := encodeCall("ping", rawdata.AllocateFrom("pong"))
	header := Header{Magic: HeaderMagic, Size: uint32(call.Size())}
	copy(ring.Prepared[0].Buf, header.Encode())
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: int32(HeaderSize)})
	require.NoError(t, ctx.Process())

	require.Len(t, ring.Prepared, 2, "payload read staged next")
	copy(ring.Prepared[1].Buf, call.Bytes())
	ring.Complete(uring.Result{UserData: ring.Prepared[1].UserData, Res: int32(call.Size())})
	require.NoError(t, ctx.Process())

	require.Equal(t, "pong", got)
}

func TestConnHandlerRejectsBadMagic(t *testing.T) {
	ctx, ring := newTestContext(t)
	c := conn.NewConnection(ctx, ctx.RegisterFakeSocket())
	adapter := NewAdapter(ConnectionTransport{Connection: c})
	h := NewConnHandler(c, adapter)

	conn.StartHeaderReadLoop(h)
	badHeader := Header{Magic: 0xBAD, Size: 0}
	copy(ring.Prepared[0].Buf, badHeader.Encode())
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: int32(HeaderSize)})
	require.NoError(t, ctx.Process())

	require.True(t, c.IsClosed())
}
