package chain

import "sync/atomic"

// All returns a Chain0 that completes once every input in inputs has
// completed (order of input completion is unconstrained). Cancelling the
// returned chain cancels every still-pending input.
func All(inputs []Chain0) Chain0 {
	out, outState := New0()
	if len(inputs) == 0 {
		outState.Complete()
		return out
	}
	remaining := newAtomicCounter(len(inputs))
	outState.setOnCancel(func() {
		for _, in := range inputs {
			in.Cancel()
		}
	})
	for _, in := range inputs {
		in := in
		in.ThenVoid(func() {
			if remaining.dec() == 0 {
				outState.Complete()
			}
		})
	}
	return out
}

// AllSimple is the variadic convenience form of All.
func AllSimple(inputs ...Chain0) Chain0 {
	return All(inputs)
}

// Collect returns a chain that completes with a slice holding every input's
// result, in input order (index i of the result always corresponds to
// inputs[i], regardless of which input actually completes first).
func Collect[T any](inputs []Chain1[T]) Chain1[[]T] {
	out, outState := New1[[]T]()
	if len(inputs) == 0 {
		outState.Complete(nil)
		return out
	}
	results := make([]T, len(inputs))
	remaining := newAtomicCounter(len(inputs))
	outState.setOnCancel(func() {
		for _, in := range inputs {
			in.Cancel()
		}
	})
	for i, in := range inputs {
		i, in := i, in
		in.ThenVoid(func(v T) {
			results[i] = v
			if remaining.dec() == 0 {
				outState.Complete(results)
			}
		})
	}
	return out
}

// Fold returns a chain that completes with an accumulator seeded at
// initial and folded with fn once per input completion (fn is called
// exactly once per input, in whatever order inputs complete — fn itself
// must not assume an order if it's order-sensitive).
func Fold[S, T any](initial S, inputs []Chain1[T], fn func(acc *S, v T)) Chain1[S] {
	out, outState := New1[S]()
	if len(inputs) == 0 {
		outState.Complete(initial)
		return out
	}
	acc := initial
	remaining := newAtomicCounter(len(inputs))
	outState.setOnCancel(func() {
		for _, in := range inputs {
			in.Cancel()
		}
	})
	for _, in := range inputs {
		in := in
		in.ThenVoid(func(v T) {
			fn(&acc, v)
			if remaining.dec() == 0 {
				outState.Complete(acc)
			}
		})
	}
	return out
}

// atomicCounter is MultiChain's shared countdown, decremented
// acquire/release per spec.md §4.2: under IoContext.ForceDeferredExecution
// (ioctx/ioctx.go), distinct completions feeding the same MultiChain can
// be posted to different TaskDispatcher worker goroutines, so two inputs
// can call dec() concurrently. atomic.Int64 makes the last-decrementer-
// wins race (exactly one caller observes zero) well-defined instead of a
// data race.
type atomicCounter struct{ n atomic.Int64 }

// newAtomicCounter returns a counter initialized to n.
func newAtomicCounter(n int) *atomicCounter {
	c := &atomicCounter{}
	c.n.Store(int64(n))
	return c
}

func (c *atomicCounter) dec() int64 {
	return c.n.Add(-1)
}
