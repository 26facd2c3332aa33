package ioctx

import (
	"testing"

	"github.com/flowkit/aio/internal/uring"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*Context, *MockRing) {
	t.Helper()
	ring := NewMockRing()
	ctx, err := NewContext(Config{Ring: ring})
	require.NoError(t, err)
	return ctx, ring
}

func TestStdioFDsRegistered(t *testing.T) {
	ctx, _ := newTestContext(t)
	require.NotEqual(t, ctx.Stdin(), ctx.Stdout())
	require.NotEqual(t, ctx.Stdout(), ctx.Stderr())
}

func TestProcessDispatchesQueuedCompletion(t *testing.T) {
	ctx, ring := newTestContext(t)
	fid := ctx.registerFD(&fdEntry{osFD: 42, kind: fdFile})

	var delivered uring.Result
	ud := ctx.nextUserData()
	ctx.registerCompleter(ud, fid, func(res uring.Result) { delivered = res })

	ring.Complete(uring.Result{UserData: ud, Res: 7})
	require.NoError(t, ctx.Process())
	require.Equal(t, int32(7), delivered.Res)
	require.False(t, ctx.HasPendingOperations())
}

func TestCancelAllPendingOperationsForResolvesWithCancelledErrno(t *testing.T) {
	ctx, _ := newTestContext(t)
	fid := ctx.registerFD(&fdEntry{osFD: 7, kind: fdConnSocket})

	var gotErr bool
	ud := ctx.nextUserData()
	ctx.registerCompleter(ud, fid, func(res uring.Result) { gotErr = res.Res < 0 })

	ctx.CancelAllPendingOperationsFor(fid)
	require.True(t, gotErr)
	require.False(t, ctx.HasPendingOperations())
}

func TestHasTooManyFileDescriptors(t *testing.T) {
	ring := NewMockRing()
	ctx, err := NewContext(Config{Ring: ring, MaxFileDescriptors: 4})
	require.NoError(t, err)
	// 3 pseudo fds already registered.
	require.False(t, ctx.HasTooManyFileDescriptors())
	ctx.registerFD(&fdEntry{osFD: 99, kind: fdFile})
	require.True(t, ctx.HasTooManyFileDescriptors())
}

func TestForceDeferredExecutionOnlyOnce(t *testing.T) {
	ctx, _ := newTestContext(t)
	d := &recordingDispatcher{}
	require.NoError(t, ctx.ForceDeferredExecution(d, "io"))
	require.Error(t, ctx.ForceDeferredExecution(d, "io"))
}

func TestForceDeferredExecutionRoutesThroughDispatcher(t *testing.T) {
	ctx, ring := newTestContext(t)
	d := &recordingDispatcher{}
	require.NoError(t, ctx.ForceDeferredExecution(d, "io"))

	fid := ctx.registerFD(&fdEntry{osFD: 1, kind: fdFile})
	ud := ctx.nextUserData()
	fired := false
	ctx.registerCompleter(ud, fid, func(uring.Result) { fired = true })
	ring.Complete(uring.Result{UserData: ud})

	require.NoError(t, ctx.Process())
	require.False(t, fired, "completion should not run inline once deferred")
	require.Len(t, d.posted, 1)
	d.posted[0]()
	require.True(t, fired)
}

type recordingDispatcher struct {
	posted []func()
}

func (d *recordingDispatcher) Post(group string, fn func()) {
	d.posted = append(d.posted, fn)
}
