package rpc

import (
	"encoding/binary"
	"sync"

	"github.com/flowkit/aio/rawdata"
)

// Handler is a registered RPC endpoint: given the arguments payload of an
// incoming call, it produces whatever work the name implies. Replies, if
// any, are the handler's own responsibility (typically via
// CurrentAdapter().SendRPC), mirroring rpc::dispatcher::local_call handing
// the decoded arguments to a plain function.
type Handler func(args rawdata.Data)

// dispatcher is the process-wide name-keyed registry LocalCall consults.
// The original generates a compile-time call id per declared RPC function
// via rpc_decl.hpp's macros; that header isn't in the retrieval pack, so
// calls are instead keyed by an explicit name string carried in the frame
// (see encodeCall/decodeCall below).
var dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// Register installs handler under name, replacing any previous
// registration. Call during setup, before any adapter starts dispatching.
func Register(name string, handler Handler) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if dispatcher.handlers == nil {
		dispatcher.handlers = make(map[string]Handler)
	}
	dispatcher.handlers[name] = handler
}

// Unregister removes name's handler, if any.
func Unregister(name string) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	delete(dispatcher.handlers, name)
}

// encodeCall builds the {nameLen, name, args} sub-frame LocalCall expects
// as an Adapter's RPC payload.
func encodeCall(name string, args rawdata.Data) rawdata.Data {
	nameBytes := []byte(name)
	total := 2 + len(nameBytes) + args.Size()
	frame := rawdata.Allocate(total)
	buf := frame.Bytes()
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(nameBytes)))
	copy(buf[2:2+len(nameBytes)], nameBytes)
	copy(buf[2+len(nameBytes):], args.Bytes())
	return frame
}

// decodeCall splits a LocalCall payload back into its name and argument
// bytes. ok is false if payload is too short to carry a valid nameLen
// prefix, which LocalCall treats as a malformed call rather than a panic.
func decodeCall(payload rawdata.Data) (name string, args []byte, ok bool) {
	buf := payload.Bytes()
	if len(buf) < 2 {
		return "", nil, false
	}
	nameLen := int(binary.LittleEndian.Uint16(buf[0:2]))
	if len(buf) < 2+nameLen {
		return "", nil, false
	}
	return string(buf[2 : 2+nameLen]), buf[2+nameLen:], true
}

// LocalCall is the default Adapter.OnPacket: it decodes the {name, args}
// sub-frame and invokes name's registered Handler, mirroring
// rpc::dispatcher::local_call's lookup-then-invoke behavior. An unknown or
// malformed call is dropped silently, as the original does for calls
// whose id doesn't resolve to a registered function.
func LocalCall(payload rawdata.Data) {
	name, args, ok := decodeCall(payload)
	if !ok {
		return
	}

	dispatcher.mu.RLock()
	handler := dispatcher.handlers[name]
	dispatcher.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(rawdata.Wrap(args))
}

// Call sends an RPC invocation of name through a, encoding args as the
// {name, args} sub-frame LocalCall decodes on the receiving end.
func Call(a *Adapter, name string, args rawdata.Data) {
	a.SendRPC(encodeCall(name, args))
}
