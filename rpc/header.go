// Package rpc implements the small framed-RPC glue that sits on top of a
// conn.HeaderHandler read loop: a pluggable adapter (init header / send / on packet),
// a scoped process-wide "current adapter" slot, and a name-keyed local
// dispatcher. Grounded on original_source/_tests/rpc_target_a.cpp's
// adapter_t/header_t and rpc::dispatcher::local_call usage; rpc_decl.hpp
// itself (the macro-based call-id generator the original relies on) isn't
// in the retrieval pack, so LocalCall dispatches by an explicit name
// string encoded in the frame rather than a compile-time-generated id —
// documented in DESIGN.md.
package rpc

import "encoding/binary"

// HeaderMagic is the fixed magic value every frame header starts with,
// per spec.md's RPC frame format.
const HeaderMagic uint32 = 0xCACACACA

// HeaderSize is the wire size of Header: two little-endian uint32s.
const HeaderSize = 8

// Header is the fixed 8-byte frame header: a magic value followed by the
// payload's byte length.
type Header struct {
	Magic uint32
	Size  uint32
}

// Encode writes h's wire representation.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Size)
	return buf
}

// DecodeHeader parses a HeaderSize-byte slice into a Header.
func DecodeHeader(buf []byte) Header {
	return Header{
		Magic: binary.LittleEndian.Uint32(buf[0:4]),
		Size:  binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// Valid reports whether h carries the expected magic.
func (h Header) Valid() bool { return h.Magic == HeaderMagic }
