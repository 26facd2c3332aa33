package conn

import (
	"testing"

	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/netaddr"
	"github.com/stretchr/testify/require"
)

func localAddr(t *testing.T) netaddr.Addr {
	t.Helper()
	return netaddr.LocalhostAddr(0)
}

func TestServerHandleAcceptTracksConnection(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := NewServer(ctx, 4)

	var accepted *Connection
	s.OnAccept = func(c *Connection) bool {
		accepted = c
		return true
	}

	s.handleAccept(ctx.RegisterFakeSocket())
	require.NotNil(t, accepted)
	require.Equal(t, 1, s.ConnectionCount())

	accepted.Close()
	require.Equal(t, 0, s.ConnectionCount())
}

func TestServerHandleAcceptRejectsOverCapacity(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := NewServer(ctx, 1)
	s.OnAccept = func(*Connection) bool { return true }

	s.handleAccept(ctx.RegisterFakeSocket())
	require.Equal(t, 1, s.ConnectionCount())

	s.handleAccept(ctx.RegisterFakeSocket())
	require.Equal(t, 1, s.ConnectionCount(), "second accept should have been rejected for capacity")
}

func TestServerForEachConnectionSurvivesCloseDuringIteration(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := NewServer(ctx, 8)
	s.OnAccept = func(*Connection) bool { return true }

	s.handleAccept(ctx.RegisterFakeSocket())
	s.handleAccept(ctx.RegisterFakeSocket())
	require.Equal(t, 2, s.ConnectionCount())

	visited := 0
	s.ForEachConnection(func(c *Connection) {
		visited++
		c.Close()
	})
	require.Equal(t, 2, visited)
	require.Equal(t, 0, s.ConnectionCount())
}

func TestServerCloseDefersRemovalUntilTokensDrain(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := NewServer(ctx, 4)

	var accepted *Connection
	s.OnAccept = func(c *Connection) bool {
		accepted = c
		return true
	}
	s.handleAccept(ctx.RegisterFakeSocket())
	require.Equal(t, 1, s.ConnectionCount())

	tk := accepted.Tokens.Take()
	accepted.Close()
	require.Equal(t, 0, s.ConnectionCount(), "closed connection leaves the active set immediately")
	require.Equal(t, 1, s.EndingConnectionCount(), "but lingers in the ending set while a token is outstanding")

	tk.Release()
	require.Equal(t, 0, s.EndingConnectionCount(), "draining the last token removes it from the ending set")
}

func TestServerListenStartsMultishotAccept(t *testing.T) {
	ctx, ring := newTestContext(t)
	s := NewServer(ctx, 4)
	require.NoError(t, s.Listen(localAddr(t), 4))
	require.Len(t, ring.Prepared, 1)
	require.Equal(t, "multishot_accept", ring.Prepared[0].Op)

	ring.Complete(uring.Result{UserData: ring.Prepared[0].UserData, Res: 50, More: true})
	require.NoError(t, ctx.Process())
	require.Equal(t, 1, s.ConnectionCount())
}
