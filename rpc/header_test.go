package rpc

import "testing"

import "github.com/stretchr/testify/require"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Magic: HeaderMagic, Size: 42}
	buf := h.Encode()
	require.Len(t, buf, HeaderSize)

	decoded := DecodeHeader(buf)
	require.Equal(t, h, decoded)
	require.True(t, decoded.Valid())
}

func TestHeaderEncodeIsLittleEndian(t *testing.T) {
	h := Header{Magic: 0x01020304, Size: 0x0A0B0C0D}
	buf := h.Encode()
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf[0:4])
	require.Equal(t, []byte{0x0D, 0x0C, 0x0B, 0x0A}, buf[4:8])
}

func TestHeaderInvalidMagic(t *testing.T) {
	h := Header{Magic: 0xDEADBEEF, Size: 0}
	require.False(t, h.Valid())
}
