package conn

import "github.com/flowkit/aio/rawdata"

// HeaderHandler is the Go counterpart of header_connection_t's Child
// template parameter: a connection driven by a fixed-size header that
// tells the read loop how many payload bytes follow.
type HeaderHandler interface {
	Connection() *Connection
	OnConnectionSetup()
	HeaderSize() uint32
	IsHeaderValid(header []byte) bool
	SizeOfData(header []byte) uint32
	OnPacket(header []byte, data rawdata.Data)
	OnPacketOversized(header []byte)
}

// MaxPacketSize bounds SizeOfData's return value the way
// header_connection_t's MaxDataSize template parameter did; callers with
// a different limit should check it themselves inside SizeOfData and
// treat an oversized result as already rejected, exactly as
// StartHeaderReadLoop does here.
const MaxPacketSize = 1 << 20

// StartHeaderReadLoop begins the read-header/read-payload/read-header...
// cycle described by header_connection_t::read_packet_header and
// read_packet_data. Unlike the ring-buffer loop, a header connection
// cannot read the next header until the current payload has fully
// arrived, so this resubmits explicitly rather than via QueueMultiReceive.
// h.OnConnectionSetup is called once the first header read is queued.
func StartHeaderReadLoop(h HeaderHandler) {
	readHeader(h)
	h.OnConnectionSetup()
}

func readHeader(h HeaderHandler) {
	c := h.Connection()
	if c.IsClosed() {
		return
	}
	tk := c.Tokens.Take()
	c.IOCtx.QueueFullReceive(c.Socket, h.HeaderSize()).ThenVoid(func(data rawdata.Data, closed bool, errno uint32) {
		defer tk.Release()
		if errno != 0 || closed {
			return
		}

		header := data.Bytes()
		if !h.IsHeaderValid(header) {
			c.debugf("invalid packet header on fd %s, closing connection", c.Socket)
			c.Close()
			return
		}

		size := h.SizeOfData(header)
		if size > MaxPacketSize {
			h.OnPacketOversized(header)
			c.Close()
			return
		}

		readPayload(h, header, size)
	})
}

func readPayload(h HeaderHandler, header []byte, size uint32) {
	c := h.Connection()
	tk := c.Tokens.Take()
	c.IOCtx.QueueFullReceive(c.Socket, size).ThenVoid(func(data rawdata.Data, closed bool, errno uint32) {
		defer tk.Release()
		if errno != 0 || closed {
			return
		}

		// Read the next header before dispatching, matching
		// header_connection_t's ordering so a handler that itself queues a
		// reply doesn't race the next inbound header.
		readHeader(h)
		h.OnPacket(header, data)
	})
}
