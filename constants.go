package aio

// Package-wide defaults, re-exported the way go-ublk re-exports its
// internal/constants package at the module root: one place downstream
// code can reference without reaching into an internal package.
const (
	// DefaultSubmissionQueueDepth is the default number of in-flight
	// submission-queue entries an IoContext's Ring is sized for.
	DefaultSubmissionQueueDepth = 256

	// DefaultMaxFileDescriptors is the fd-table size at which an IoContext's
	// HasTooManyFileDescriptors starts reporting true (conn.Server then
	// refuses new accepts); CreateSocket/MapFile themselves never refuse.
	DefaultMaxFileDescriptors = 4096

	// DefaultReadBufferSize is a suggested receive buffer size; it is not
	// referenced by the module, and QueueReceive always takes an explicit
	// size.
	DefaultReadBufferSize = 64 * 1024

	// DefaultMaxConnections is base_server_interface's default admission
	// ceiling, matching original_source's network_helper.hpp default of 32.
	DefaultMaxConnections = 32

	// DefaultRingBufferSize is a suggested capacity for a ring-buffer
	// connection's receive buffer; it is not referenced by the module, and
	// conn.NewRingBufferConn always takes an explicit capacity.
	DefaultRingBufferSize = 1024

	// DefaultMaxHeaderPayloadSize matches original_source's 1MB frame
	// payload ceiling. It is not referenced by the module; the limit
	// conn.StartHeaderReadLoop applies is conn.MaxPacketSize (same value).
	DefaultMaxHeaderPayloadSize = 1 << 20
)
