package rpc

import (
	"testing"

	"github.com/flowkit/aio/rawdata"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures every frame handed to SendFrame, standing in
// for ServerTransport/ConnectionTransport in adapter-level tests.
type recordingTransport struct {
	frames []rawdata.Data
}

func (t *recordingTransport) SendFrame(frame rawdata.Data) {
	t.frames = append(t.frames, frame)
}

func TestAdapterSendRPCFramesPayload(t *testing.T) {
	transport := &recordingTransport{}
	a := NewAdapter(transport)
	require.NotEmpty(t, a.ScopeID)

	a.SendRPC(rawdata.AllocateFrom("hello"))
	require.Len(t, transport.frames, 1)

	frame := transport.frames[0].Bytes()
	header := DecodeHeader(frame[:HeaderSize])
	require.True(t, header.Valid())
	require.EqualValues(t, 5, header.Size)
	require.Equal(t, "hello", string(frame[HeaderSize:]))
}

func TestAdapterDispatchInvokesOnPacket(t *testing.T) {
	a := NewAdapter(&recordingTransport{})
	var got string
	a.OnPacket = func(payload rawdata.Data) { got = string(payload.Bytes()) }

	a.Dispatch(rawdata.AllocateFrom("payload"))
	require.Equal(t, "payload", got)
}

func TestAdapterDispatchNilOnPacketIsNoop(t *testing.T) {
	a := NewAdapter(&recordingTransport{})
	a.OnPacket = nil
	require.NotPanics(t, func() {
		a.Dispatch(rawdata.AllocateFrom("x"))
	})
}
