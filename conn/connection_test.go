package conn

import (
	"testing"

	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/ioctx"
	"github.com/flowkit/aio/rawdata"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*ioctx.Context, *ioctx.MockRing) {
	t.Helper()
	ring := ioctx.NewMockRing()
	c, err := ioctx.NewContext(ioctx.Config{Ring: ring})
	require.NoError(t, err)
	return c, ring
}

func TestConnectionQueueSendClosesOnError(t *testing.T) {
	ctx, ring := newTestContext(t)

	c := &Connection{IOCtx: ctx, Socket: ctx.RegisterFakeSocket()}
	c.QueueSend(rawdata.AllocateFrom("x"))
	require.Len(t, ring.Prepared, 1)
	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: -5})
	require.NoError(t, ctx.Process())
	require.True(t, c.IsClosed())
}

func TestConnectionCloseFiresOnClose(t *testing.T) {
	ctx, _ := newTestContext(t)
	c := &Connection{IOCtx: ctx, Socket: ctx.RegisterFakeSocket()}
	fired := false
	c.OnClose = func() { fired = true }
	c.Close()
	require.True(t, fired)
	// Idempotent: a second Close must not panic or re-fire.
	c.Close()
	require.True(t, fired)
}
