package rpc

import (
	"github.com/flowkit/aio/conn"
	"github.com/flowkit/aio/rawdata"
)

// ServerTransport fans a frame out to every connection a conn.Server
// currently tracks, mirroring adapter_t::send_rpc's server branch in
// rpc_target_a.cpp (for_each_connection + queue_full_send of a
// duplicated buffer per connection).
type ServerTransport struct {
	Server *conn.Server
}

// SendFrame duplicates frame once per live connection and queues a full
// send on each, since rawdata.Data is move-only by convention and a
// single buffer can't be hand-copied across multiple in-flight sends.
func (t ServerTransport) SendFrame(frame rawdata.Data) {
	t.Server.ForEachConnection(func(c *conn.Connection) {
		c.QueueFullSend(frame.Duplicate())
	})
}

// ConnectionTransport sends a frame to exactly one connection, mirroring
// adapter_t::send_rpc's connection branch.
type ConnectionTransport struct {
	Connection *conn.Connection
}

// SendFrame queues a full send of frame on the one connection.
func (t ConnectionTransport) SendFrame(frame rawdata.Data) {
	t.Connection.QueueFullSend(frame)
}

var (
	_ Transport = ServerTransport{}
	_ Transport = ConnectionTransport{}
)
