package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndCompleteFiresImmediately(t *testing.T) {
	c := CreateAndComplete1(42)
	got := -1
	c.ThenVoid(func(v int) { got = v })
	require.Equal(t, 42, got)
}

func TestLateCompletionIsStashedUntilThenVoid(t *testing.T) {
	ch, st := New1[int]()
	st.Complete(7)
	got := 0
	ch.ThenVoid(func(v int) { got = v })
	require.Equal(t, 7, got)
}

func TestCancelSuppressesCompletion(t *testing.T) {
	ch, st := New1[int]()
	ch.Cancel()
	require.True(t, st.IsCanceled())
	fired := false
	st.Complete(1)
	ch.ThenVoid(func(int) { fired = true })
	require.False(t, fired)
}

func TestThenVoidTwiceIsAContractViolation(t *testing.T) {
	ch, _ := New1[int]()
	ch.ThenVoid(func(int) {})
	require.Panics(t, func() { ch.ThenVoid(func(int) {}) })
}

// TestCascade mirrors the three-stage chain cascade scenario: each stage's
// then() feeds the next with a transformed value, and the three
// transformations observably run in order with no stack growth between
// them (this is a pure synchronous callback chain, not recursion, so a
// stack-depth assertion isn't meaningful here — the recursive fan-out test
// below is what exercises flat composition's depth bound).
func TestCascade(t *testing.T) {
	var order []string
	c := CreateAndComplete1(1)
	c2 := Then1(c, func(v int) int {
		order = append(order, "first")
		return v + 1
	})
	c3 := Then1(c2, func(v int) int {
		order = append(order, "second")
		return v * 10
	})
	final := 0
	c3.ThenVoid(func(v int) {
		order = append(order, "third")
		final = v
	})
	require.Equal(t, []string{"first", "second", "third"}, order)
	require.Equal(t, 20, final)
}

// TestThenChainFlattensNestedChains exercises the chain-returning then()
// overload: the outer chain only completes once the inner chain (produced
// by f) itself completes, and an inner chain that's already complete
// resolves the outer synchronously via UseState's early-completion path.
func TestThenChainFlattensNestedChains(t *testing.T) {
	c := CreateAndComplete1(5)
	out := ThenChain1(c, func(v int) Chain1[int] {
		return CreateAndComplete1(v * 2)
	})
	got := -1
	out.ThenVoid(func(v int) { got = v })
	require.Equal(t, 10, got)
}

// TestThenChainDeferred exercises the case where the inner chain has not
// completed yet when use_state splices it in.
func TestThenChainDeferred(t *testing.T) {
	c := CreateAndComplete1(5)
	var innerState State1[int]
	out := ThenChain1(c, func(v int) Chain1[int] {
		var inner Chain1[int]
		innerState = inner.CreateState()
		return inner
	})
	got := -1
	out.ThenVoid(func(v int) { got = v })
	require.Equal(t, -1, got, "inner not completed yet")
	innerState.Complete(99)
	require.Equal(t, 99, got)
}

// recurse exercises deep synchronous recursive fan-out the way the
// 4096-deep scenario does, at a much smaller depth: each level issues two
// nested chains composed via ThenChain0Void before completing. Building
// the tree recurses through one Go call per level, so the stack grows with
// max; every leaf is already complete, so each ThenChain0Void continuation
// fires inline as soon as it is installed.
func recurse(depth, max int, counter *int) Chain0 {
	*counter++
	if depth >= max {
		return CreateAndComplete0()
	}
	first := recurse(depth+1, max, counter)
	return ThenChain0Void(first, func() Chain0 {
		return recurse(depth+1, max, counter)
	})
}

func TestRecursiveFanOut(t *testing.T) {
	const depth = 12 // 2^13-1 invocations; deep enough to prove the pattern without a slow test
	counter := 0
	done := false
	top := recurse(0, depth, &counter)
	top.ThenVoid(func() { done = true })
	require.True(t, done)
	require.Equal(t, (1<<(depth+1))-1, counter)
}
