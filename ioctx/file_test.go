package ioctx

import (
	"testing"

	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/rawdata"
	"github.com/stretchr/testify/require"
)

func TestQueueReadDeliversBytes(t *testing.T) {
	ctx, ring := newTestContext(t)
	fid := ctx.registerFD(&fdEntry{osFD: 10, kind: fdFile})

	ch := ctx.QueueRead(fid, 5, 0)
	require.Len(t, ring.Prepared, 1)
	ud := ring.Prepared[0].UserData
	copy(ring.Prepared[0].Buf, []byte("hello"))
	ring.Complete(uring.Result{UserData: ud, Res: 5})
	require.NoError(t, ctx.Process())

	var got rawdata.Data
	var eof bool
	var errno uint32
	ch.ThenVoid(func(d rawdata.Data, e bool, en uint32) { got, eof, errno = d, e, en })
	require.Equal(t, "hello", string(got.Bytes()))
	require.False(t, eof)
	require.Zero(t, errno)
}

func TestQueueWriteAppendOrdersByCallOrder(t *testing.T) {
	ctx, ring := newTestContext(t)
	fid := ctx.registerFD(&fdEntry{osFD: 11, kind: fdFile})

	ch1 := ctx.QueueWrite(fid, rawdata.AllocateFrom("AAAA"), Append)
	ch2 := ctx.QueueWrite(fid, rawdata.AllocateFrom("BB"), Append)

	require.Len(t, ring.Prepared, 2)
	require.Equal(t, int64(0), ring.Prepared[0].Offset)
	require.Equal(t, int64(4), ring.Prepared[1].Offset)

	ring.Complete(uring.Result{UserData: ring.Prepared[1].UserData, Res: 2})
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 4})
	require.NoError(t, ctx.Process())

	var buf1, buf2 rawdata.Data
	ch1.ThenVoid(func(d rawdata.Data, short bool, errno uint32) { buf1 = d })
	ch2.ThenVoid(func(d rawdata.Data, short bool, errno uint32) { buf2 = d })
	require.Equal(t, "AAAA", string(buf1.Bytes()), "the written buffer is moved back to the caller on completion")
	require.Equal(t, "BB", string(buf2.Bytes()))
}

func TestQueueReadUnknownFD(t *testing.T) {
	ctx, _ := newTestContext(t)
	ch := ctx.QueueRead(999999, 4, 0)
	var errno uint32
	ch.ThenVoid(func(d rawdata.Data, eof bool, en uint32) { errno = en })
	require.NotZero(t, errno)
}
