package mtcheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialWriteEntryIsFine(t *testing.T) {
	g := NewGuard("test")
	leave := g.EnterWrite()
	leave()
	leave2 := g.EnterWrite()
	leave2()
}

func TestConcurrentWritePanics(t *testing.T) {
	g := NewGuard("test")
	leave := g.EnterWrite()
	defer leave()
	require.Panics(t, func() { g.EnterWrite() })
}

func TestConcurrentReadersAreFine(t *testing.T) {
	g := NewGuard("test")
	leave1 := g.EnterRead()
	leave2 := g.EnterRead()
	leave2()
	leave1()
}

func TestWriteWhileReadHeldPanics(t *testing.T) {
	g := NewGuard("test")
	leave := g.EnterRead()
	defer leave()
	require.Panics(t, func() { g.EnterWrite() })
}

func TestReadWhileWriteHeldPanics(t *testing.T) {
	g := NewGuard("test")
	leave := g.EnterWrite()
	defer leave()
	require.Panics(t, func() { g.EnterRead() })
}

func TestCheckNoAccessPanicsWhileHeld(t *testing.T) {
	g := NewGuard("test")
	leave := g.EnterRead()
	defer leave()
	require.Panics(t, func() { g.CheckNoAccess() })
}

func TestCheckNoAccessFineWhenIdle(t *testing.T) {
	g := NewGuard("test")
	require.NotPanics(t, func() { g.CheckNoAccess() })
}

func TestNilGuardIsANoOp(t *testing.T) {
	var g *Guard
	leave := g.EnterRead()
	require.NotPanics(t, leave)
	leave = g.EnterWrite()
	require.NotPanics(t, leave)
	require.NotPanics(t, g.CheckNoAccess)
}
