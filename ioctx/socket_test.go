package ioctx

import (
	"testing"

	"github.com/flowkit/aio/id"
	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/rawdata"
	"github.com/stretchr/testify/require"
)

func TestQueueAcceptRegistersNewConnFD(t *testing.T) {
	ctx, ring := newTestContext(t)
	listenFID := ctx.registerFD(&fdEntry{osFD: 20, kind: fdListenSocket})

	ch := ctx.QueueAccept(listenFID)
	require.Len(t, ring.Prepared, 1)
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 55})
	require.NoError(t, ctx.Process())

	var connFID id.ID
	ch.ThenVoid(func(fid id.ID) { connFID = fid })
	require.NotEqual(t, id.None, connFID)
}

func TestQueueMultiAcceptDeliversRepeatedly(t *testing.T) {
	ctx, ring := newTestContext(t)
	listenFID := ctx.registerFD(&fdEntry{osFD: 21, kind: fdListenSocket})

	var accepted []id.ID
	require.NoError(t, ctx.QueueMultiAccept(listenFID, func(fid id.ID) {
		accepted = append(accepted, fid)
	}))
	require.Len(t, ring.Prepared, 1)
	ud := ring.Prepared[0].UserData

	ring.Complete(uring.Result{UserData: ud, Res: 30, More: true})
	ring.Complete(uring.Result{UserData: ud, Res: 31, More: true})
	require.NoError(t, ctx.Process())
	require.Len(t, accepted, 2)
}

func TestQueueSendPreparesCorrectBuffer(t *testing.T) {
	ctx, ring := newTestContext(t)
	fid := ctx.registerFD(&fdEntry{osFD: 22, kind: fdConnSocket})

	ch := ctx.QueueSend(fid, rawdata.AllocateFrom("payload"))
	require.Len(t, ring.Prepared, 1)
	require.Equal(t, "payload", string(ring.Prepared[0].Buf))

	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 7})
	require.NoError(t, ctx.Process())

	var n uint32
	ch.ThenVoid(func(sent uint32, errno uint32) { n = sent })
	require.Equal(t, uint32(7), n)
}

func TestQueueFullSendResubmitsUntilComplete(t *testing.T) {
	ctx, ring := newTestContext(t)
	fid := ctx.registerFD(&fdEntry{osFD: 23, kind: fdConnSocket})

	ch := ctx.QueueFullSend(fid, rawdata.AllocateFrom("abcdef"))
	require.Len(t, ring.Prepared, 1)
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 3})
	require.NoError(t, ctx.Process())

	require.Len(t, ring.Prepared, 2)
	require.Equal(t, "def", string(ring.Prepared[1].Buf))
	ring.Complete(uring.Result{UserData: ring.Prepared[1].UserData, Res: 3})
	require.NoError(t, ctx.Process())

	var total uint32
	ch.ThenVoid(func(n uint32) { total = n })
	require.Equal(t, uint32(6), total)
}
