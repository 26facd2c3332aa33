package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallbackFiresExactlyOnceAtZero(t *testing.T) {
	var c Counter
	r1 := c.Take()
	r2 := c.Take()
	fired := 0
	c.SetCallback(func() { fired++ })

	r1.Release()
	require.Equal(t, 0, fired)
	r2.Release()
	require.Equal(t, 1, fired)
}

func TestSetCallbackOnAlreadyIdleFiresImmediately(t *testing.T) {
	var c Counter
	fired := false
	c.SetCallback(func() { fired = true })
	require.True(t, fired)
}

func TestDoubleReleasePanics(t *testing.T) {
	var c Counter
	r := c.Take()
	r.Release()
	require.Panics(t, func() { r.Release() })
}

func TestReTakeAfterZeroDoesNotRefireStaleCallback(t *testing.T) {
	var c Counter
	fired := 0
	r1 := c.Take()
	c.SetCallback(func() { fired++ })
	r1.Release()
	require.Equal(t, 1, fired)

	r2 := c.Take()
	r2.Release()
	require.Equal(t, 1, fired, "callback was consumed on first zero crossing")
}
