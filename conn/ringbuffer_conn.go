package conn

import (
	"github.com/flowkit/aio/rawdata"
	"github.com/flowkit/aio/ringbuf"
)

// RingBufferHandler is what a ring-buffer-framed connection's owner
// implements, the Go counterpart of ring_buffer_connection_t's Child
// template parameter. OnRead is told the ring buffer offset and length of
// the bytes just inserted; OnBufferFull defaults to closing the
// connection if not overridden.
type RingBufferHandler interface {
	Connection() *Connection
	OnConnectionSetup()
	OnRead(startOffset, size uint32)
	OnBufferFull()
}

// DefaultOnBufferFull is the behavior ring_buffer_connection_t uses when a
// handler doesn't need anything fancier: close the connection outright.
func DefaultOnBufferFull(h RingBufferHandler) {
	h.Connection().Close()
}

// RingBufferConn drives a connection's read loop into a fixed-capacity
// ring buffer, invoking h.OnRead after every insertion and h.OnBufferFull
// when an insertion doesn't fully fit.
type RingBufferConn struct {
	ReadBuffer *ringbuf.Buffer[byte]
}

// NewRingBufferConn allocates a ring buffer of the given capacity.
func NewRingBufferConn(capacity int) *RingBufferConn {
	return &RingBufferConn{ReadBuffer: ringbuf.New[byte](capacity)}
}

// StartAsyncRead begins the automatic multi-receive loop described by
// ring_buffer_connection_t::async_read: every chunk the socket delivers is
// pushed into the ring buffer, h.OnRead is invoked once per insertion, and
// if an insertion doesn't fit in full the remainder is pushed again (to
// handle the case where OnRead itself drained space) for as long as each
// push inserts something; h.OnBufferFull is called once a push inserts
// nothing. h.OnConnectionSetup is called once the receive loop is queued.
func (rc *RingBufferConn) StartAsyncRead(h RingBufferHandler) {
	c := h.Connection()
	const chunkSize = 64 * 1024

	c.IOCtx.QueueMultiReceive(c.Socket, chunkSize, func(data rawdata.Data, closed bool, errno uint32) bool {
		if errno != 0 || closed {
			return false
		}

		remaining := data.Bytes()
		for len(remaining) > 0 {
			before := rc.ReadBuffer.Size()
			n := rc.ReadBuffer.PushBack(remaining)
			after := rc.ReadBuffer.Size()

			h.OnRead(uint32(before), uint32(n))
			if c.IsClosed() {
				return false
			}

			if n == len(remaining) {
				break
			}
			if after == before {
				// OnRead drained nothing; the buffer is genuinely full.
				h.OnBufferFull()
				return !c.IsClosed()
			}
			remaining = remaining[n:]
		}
		return true
	})
	h.OnConnectionSetup()
}
