// Package conn builds connection- and server-level helpers on top of
// ioctx: a Connection façade over one socket id, two read-loop flavors
// (ring-buffer framing and length-prefixed-header framing), and a Server
// that runs the accept loop and tracks live connections. Grounded on
// original_source/io/network_helper.hpp's connection_t/base_server_interface
// and io/connections.hpp's ring_buffer_connection_t/header_connection_t,
// translated from CRTP (Child template parameter) to plain Go interfaces
// since Go has no compile-time "static_cast<Child*>(this)".
package conn

import (
	"github.com/flowkit/aio/chain"
	"github.com/flowkit/aio/id"
	"github.com/flowkit/aio/internal/interfaces"
	"github.com/flowkit/aio/ioctx"
	"github.com/flowkit/aio/netaddr"
	"github.com/flowkit/aio/rawdata"
	"github.com/flowkit/aio/token"
)

// Connection wraps one connected socket: it owns the socket's id.ID, an
// in-flight-operation token.Counter that keeps the connection alive until
// every queued chain has resolved, and an OnClose hook fired once the
// socket is actually closed.
type Connection struct {
	IOCtx  *ioctx.Context
	Socket id.ID
	Tokens token.Counter

	// Logger receives per-connection lifecycle traces; nil disables
	// logging. Set before the connection is handed to its server.
	Logger interfaces.Logger

	// OnClose runs after the socket is closed and every pending operation
	// has been cancelled. Set before the connection is handed to its
	// server, never concurrently with Close.
	OnClose func()

	server *Server
	closed bool
}

// NewConnection wraps an already-accepted or already-connected socket id.
func NewConnection(ioctxRef *ioctx.Context, socket id.ID) *Connection {
	return &Connection{IOCtx: ioctxRef, Socket: socket}
}

// IsClosed reports whether the connection's socket has been closed.
func (c *Connection) IsClosed() bool { return c.closed }

func (c *Connection) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func (c *Connection) debugf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debugf(format, args...)
	}
}

// Close cancels every pending operation on the socket, closes it, and
// fires OnClose. Safe to call more than once.
func (c *Connection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.debugf("closing connection on fd %s", c.Socket)
	_ = c.IOCtx.Close(c.Socket)
	if c.server != nil {
		c.server.moveToEnding(c)
	}
	if c.OnClose != nil {
		c.OnClose()
	}
}

// QueueSend sends data once.
func (c *Connection) QueueSend(data rawdata.Data) {
	tk := c.Tokens.Take()
	c.IOCtx.QueueSend(c.Socket, data).ThenVoid(func(n uint32, errno uint32) {
		defer tk.Release()
		if errno != 0 {
			c.logf("send on fd %s failed: errno %d", c.Socket, errno)
			c.Close()
		}
	})
}

// QueueFullSend sends every byte of data, resubmitting as needed.
func (c *Connection) QueueFullSend(data rawdata.Data) {
	tk := c.Tokens.Take()
	c.IOCtx.QueueFullSend(c.Socket, data).ThenVoid(func(uint32) {
		tk.Release()
	})
}

// QueueConnect dials addr and wraps the resulting socket as a Connection,
// mirroring connection_t::queue_connect's fire-then-wrap shape: the chain
// resolves with (nil, false) if the dial failed.
func QueueConnect(ioctxRef *ioctx.Context, addr netaddr.Addr) chain.Chain2[*Connection, bool] {
	out, st := chain.New2[*Connection, bool]()
	ioctxRef.QueueConnect(addr).ThenVoid(func(fid id.ID) {
		if fid == id.None {
			st.Complete(nil, false)
			return
		}
		st.Complete(NewConnection(ioctxRef, fid), true)
	})
	return out
}
