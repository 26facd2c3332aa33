package uring

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPollRingReadWrite(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ring")
	require.NoError(t, err)
	defer f.Close()

	r := newPollRing(16)
	defer r.Close()

	data := []byte("hello, ring!")
	require.NoError(t, r.PrepareWrite(int(f.Fd()), data, 0, 1))
	_, err = r.Submit()
	require.NoError(t, err)

	results, err := r.WaitCompletions(1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(1), results[0].UserData)
	require.Equal(t, int32(len(data)), results[0].Res)

	readBuf := make([]byte, len(data))
	require.NoError(t, r.PrepareRead(int(f.Fd()), readBuf, 0, 2))
	_, err = r.Submit()
	require.NoError(t, err)

	results, err = r.WaitCompletions(1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(2), results[0].UserData)
	require.Equal(t, int32(len(data)), results[0].Res)
	require.Equal(t, data, readBuf)
}

func TestPollRingAcceptCancel(t *testing.T) {
	// CancelUserData on a userData that was never staged as a multishot
	// accept is a harmless no-op.
	r := newPollRing(4)
	defer r.Close()
	require.NoError(t, r.CancelUserData(999))
}

func TestPollRingPeekCompletionsNonBlocking(t *testing.T) {
	r := newPollRing(4)
	defer r.Close()
	require.Empty(t, r.PeekCompletions(8))
}
