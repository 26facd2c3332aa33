package rpc

import (
	"github.com/flowkit/aio/internal/interfaces"
	"github.com/flowkit/aio/rawdata"
	"github.com/google/uuid"
)

// Transport is what a concrete adapter needs from its owner: build the
// frame (header + payload) and hand it off to be sent. Implemented by
// ServerTransport (fan-out to every connection) and ConnectionTransport
// (send to one), the Go equivalents of adapter_t's server/connection
// dual-mode constructor in rpc_target_a.cpp.
type Transport interface {
	SendFrame(frame rawdata.Data)
}

// PacketHandler receives a fully-reassembled incoming frame's payload.
// NewAdapter sets Adapter.OnPacket to LocalCall (a zero Adapter has none
// and drops incoming frames); callers that need different behavior can
// override Adapter's OnPacket field directly.
type PacketHandler func(payload rawdata.Data)

// Adapter is the Go counterpart of rpc::basic_adapter<Child>: it knows how
// to frame an outgoing payload and hand it to its Transport, and how to
// route an incoming payload once the framed connection (a
// conn.HeaderHandler driven by conn.StartHeaderReadLoop) has reassembled
// one.
//
// ScopeID identifies this adapter in log/error context. The original
// derives no such id (it relies on C++ object identity); we generate one
// since Go log lines carry no pointer identity a human can use, following
// the uuid dependency the rest of the retrieval pack already pulls in.
type Adapter struct {
	Transport Transport
	OnPacket  PacketHandler
	ScopeID   string

	// Logger receives per-adapter send/dispatch traces, keyed by ScopeID;
	// nil disables logging.
	Logger interfaces.Logger
}

// NewAdapter builds an Adapter over t, with OnPacket defaulting to
// LocalCall — on_packet's default behavior per spec.md §4.5 — and ScopeID
// set to a freshly generated uuid.
func NewAdapter(t Transport) *Adapter {
	return &Adapter{Transport: t, OnPacket: LocalCall, ScopeID: uuid.NewString()}
}

func (a *Adapter) logf(format string, args ...interface{}) {
	if a.Logger != nil {
		a.Logger.Printf("[%s] "+format, append([]interface{}{a.ScopeID}, args...)...)
	}
}

func (a *Adapter) debugf(format string, args ...interface{}) {
	if a.Logger != nil {
		a.Logger.Debugf("[%s] "+format, append([]interface{}{a.ScopeID}, args...)...)
	}
}

// SendRPC frames payload with the fixed little-endian header (magic +
// size) and hands the frame to the transport.
func (a *Adapter) SendRPC(payload rawdata.Data) {
	header := Header{Magic: HeaderMagic, Size: uint32(payload.Size())}
	frame := rawdata.Allocate(HeaderSize + payload.Size())
	buf := frame.Bytes()
	copy(buf[:HeaderSize], header.Encode())
	copy(buf[HeaderSize:], payload.Bytes())
	a.debugf("sending frame: %d byte payload", payload.Size())
	a.Transport.SendFrame(frame)
}

// Dispatch is what a conn.HeaderHandler's OnPacket hook calls once a full
// frame has arrived: it forwards just the payload (the header itself was
// already validated/stripped by the framed connection) to a.OnPacket.
func (a *Adapter) Dispatch(payload rawdata.Data) {
	if a.OnPacket == nil {
		a.debugf("dropping %d byte frame: no OnPacket handler set", payload.Size())
		return
	}
	a.OnPacket(payload)
}
