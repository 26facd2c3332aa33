package conn

import (
	"sync"

	"github.com/flowkit/aio"
	"github.com/flowkit/aio/id"
	"github.com/flowkit/aio/internal/interfaces"
	"github.com/flowkit/aio/ioctx"
	"github.com/flowkit/aio/netaddr"
	"github.com/flowkit/aio/token"
)

// Server runs the accept loop for a listening socket and tracks the
// resulting connections, the Go counterpart of
// base_server_interface/base_server. OnAccept is called for each newly
// accepted connection (already wrapped and admission-checked); returning
// false tells the server not to track it — it is closed immediately,
// mirroring on_connection returning nullptr in the original.
type Server struct {
	IOCtx          *ioctx.Context
	MaxConnections uint32
	OnAccept       func(*Connection) bool

	// Logger receives accept/admission/lifecycle traces; nil disables
	// logging. Connections accepted by this server inherit it.
	Logger interfaces.Logger

	mu           sync.Mutex
	listenSocket id.ID
	connections  map[*Connection]struct{}
	ending       map[*Connection]struct{}
}

// NewServer constructs a Server bound to ioctxRef. Call Listen to open the
// listening socket and start accepting.
func NewServer(ioctxRef *ioctx.Context, maxConnections uint32) *Server {
	if maxConnections == 0 {
		maxConnections = aio.DefaultMaxConnections
	}
	return &Server{
		IOCtx:          ioctxRef,
		MaxConnections: maxConnections,
		listenSocket:   id.None,
		connections:    make(map[*Connection]struct{}),
		ending:         make(map[*Connection]struct{}),
	}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Server) debugf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Debugf(format, args...)
	}
}

// Listen opens a listening socket at addr and starts the multishot
// accept loop.
func (s *Server) Listen(addr netaddr.Addr, backlog int) error {
	fid, err := s.IOCtx.CreateListeningSocket(addr, backlog)
	if err != nil {
		s.logf("listen on %s failed: %v", addr, err)
		return err
	}
	s.mu.Lock()
	s.listenSocket = fid
	s.mu.Unlock()
	s.logf("listening on %s as fd %s", addr, fid)

	return s.IOCtx.QueueMultiAccept(fid, s.handleAccept)
}

// IsListening reports whether the listening socket is still open.
func (s *Server) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenSocket != id.None
}

// CloseListeningSocket stops accepting new connections without touching
// already-open ones.
func (s *Server) CloseListeningSocket() {
	s.mu.Lock()
	fid := s.listenSocket
	s.listenSocket = id.None
	s.mu.Unlock()
	if fid != id.None {
		s.debugf("closing listening socket fd %s", fid)
		_ = s.IOCtx.Close(fid)
	}
}

// HasAnyConnections reports whether at least one connection is tracked.
func (s *Server) HasAnyConnections() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections) > 0
}

// ConnectionCount returns the number of tracked connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// CloseAllConnections force-closes every tracked connection.
func (s *Server) CloseAllConnections() {
	s.mu.Lock()
	toClose := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		toClose = append(toClose, c)
	}
	s.mu.Unlock()
	for _, c := range toClose {
		c.Close()
	}
}

// ForEachConnection invokes fn once per currently tracked connection.
// It snapshots the active set under the lock and takes a token on each
// connection before the lock is released, so fn can freely call c.Close()
// (which needs the server lock to remove itself) without deadlocking and
// without the connection being dropped from the ending set out from under
// fn; each token is released right after its callback returns.
func (s *Server) ForEachConnection(fn func(c *Connection)) {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	tokens := make([]token.Ref, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
		tokens = append(tokens, c.Tokens.Take())
	}
	s.mu.Unlock()

	for i, c := range conns {
		fn(c)
		tokens[i].Release()
	}
}

func (s *Server) handleAccept(fid id.ID) {
	c := NewConnection(s.IOCtx, fid)
	c.Logger = s.Logger

	s.mu.Lock()
	tooMany := uint32(len(s.connections)) >= s.MaxConnections
	s.mu.Unlock()

	if tooMany || s.IOCtx.HasTooManyFileDescriptors() {
		s.logf("rejecting connection on fd %s: over capacity", fid)
		c.Close()
		return
	}

	if s.OnAccept != nil && !s.OnAccept(c) {
		s.debugf("rejecting connection on fd %s: declined by OnAccept", fid)
		c.Close()
		return
	}

	c.server = s
	s.mu.Lock()
	s.connections[c] = struct{}{}
	s.mu.Unlock()
	s.debugf("accepted connection on fd %s (%d active)", fid, s.ConnectionCount())
}

// moveToEnding moves c from the active set to the ending set, mirroring
// network_helper.hpp's move_to_ended_connections: c stays reachable (and
// out of ForEachConnection's iteration) until its token.Counter drains to
// zero, at which point remove_from_ended_connections's Go counterpart
// below deletes it for good. Called from Connection.Close.
func (s *Server) moveToEnding(c *Connection) {
	s.mu.Lock()
	delete(s.connections, c)
	s.ending[c] = struct{}{}
	s.mu.Unlock()

	c.Tokens.SetCallback(func() {
		s.mu.Lock()
		delete(s.ending, c)
		s.mu.Unlock()
	})
}

// EndingConnectionCount returns the number of connections that have been
// closed but are still draining in-flight operations.
func (s *Server) EndingConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ending)
}
