package rpc

import (
	"github.com/flowkit/aio/conn"
	"github.com/flowkit/aio/rawdata"
)

// ConnHandler wires an Adapter to a single framed connection: it satisfies
// conn.HeaderHandler by validating the fixed Header and forwarding each
// reassembled payload to the Adapter's Dispatch, the Go shape of
// rpc_target_a.cpp's connection_state (a header_connection_t::Child whose
// on_packet forwards into rpc::dispatcher::local_call).
type ConnHandler struct {
	conn    *conn.Connection
	Adapter *Adapter
}

// NewConnHandler builds a ConnHandler over c, wiring adapter's transport
// to send on c if adapter has none yet set.
func NewConnHandler(c *conn.Connection, adapter *Adapter) *ConnHandler {
	if adapter.Transport == nil {
		adapter.Transport = ConnectionTransport{Connection: c}
	}
	return &ConnHandler{conn: c, Adapter: adapter}
}

func (h *ConnHandler) Connection() *conn.Connection { return h.conn }

func (h *ConnHandler) OnConnectionSetup() {}

func (h *ConnHandler) HeaderSize() uint32 { return HeaderSize }

func (h *ConnHandler) IsHeaderValid(header []byte) bool {
	return DecodeHeader(header).Valid()
}

func (h *ConnHandler) SizeOfData(header []byte) uint32 {
	return DecodeHeader(header).Size
}

func (h *ConnHandler) OnPacket(header []byte, data rawdata.Data) {
	h.Adapter.Dispatch(data)
}

func (h *ConnHandler) OnPacketOversized(header []byte) {
	h.Adapter.logf("oversized frame declared %d bytes, closing connection", DecodeHeader(header).Size)
}

var _ conn.HeaderHandler = (*ConnHandler)(nil)
