package chain

// Then0 maps a Chain0 completion through f, producing a chain that
// completes with f's plain return value.
func Then0[B any](c Chain0, f func() B) Chain1[B] {
	out, st := New1[B]()
	c.ThenVoid(func() { st.Complete(f()) })
	return out
}

// ThenChain0 maps a Chain0 completion through f, which itself returns a
// chain; the result completes when f's chain does. This is the combinator
// behind unbounded-depth recursive fan-out (f recurses and returns its own
// nested composition instead of completing synchronously), since each
// recursive step returns through UseState rather than growing the Go call
// stack.
func ThenChain0[B any](c Chain0, f func() Chain1[B]) Chain1[B] {
	var out Chain1[B]
	outState := out.CreateState()
	c.ThenVoid(func() {
		f().UseState(outState)
	})
	return out
}

// ThenChain0Void is the common recursive-fan-out shape: f returns a Chain0
// (no value) rather than a Chain1.
func ThenChain0Void(c Chain0, f func() Chain0) Chain0 {
	var out Chain0
	outState := out.CreateState()
	c.ThenVoid(func() {
		f().UseState(outState)
	})
	return out
}
