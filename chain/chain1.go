package chain

// cell1 is the shared state behind a Chain1[A]/State1[A] pair.
type cell1[A any] struct {
	completed  bool
	result     A
	onComplete func(A)
	onCancel   func()
	canceled   bool
	hasThen    bool
}

// Chain1 is the consumer half of a one-argument chain: "the previous
// operation completed with a value of type A".
type Chain1[A any] struct{ c *cell1[A] }

// State1 is the producer half of a Chain1[A].
type State1[A any] struct{ c *cell1[A] }

// New1 returns a freshly linked Chain1[A]/State1[A] pair.
func New1[A any]() (Chain1[A], State1[A]) {
	c := &cell1[A]{}
	return Chain1[A]{c}, State1[A]{c}
}

// CreateAndComplete1 returns a chain whose state is already completed
// with a.
func CreateAndComplete1[A any](a A) Chain1[A] {
	ch, st := New1[A]()
	st.Complete(a)
	return ch
}

// CreateState attaches a fresh producer half to c.
func (c *Chain1[A]) CreateState() State1[A] {
	if c.c != nil {
		panic("chain: CreateState called on a chain that already has a state")
	}
	cell := &cell1[A]{}
	c.c = cell
	return State1[A]{cell}
}

// Complete resolves the chain with a.
func (s State1[A]) Complete(a A) {
	if s.c == nil || s.c.canceled {
		return
	}
	if s.c.onComplete != nil {
		cb := s.c.onComplete
		s.c.onComplete = nil
		cb(a)
		return
	}
	s.c.result = a
	s.c.completed = true
}

// IsCanceled reports whether the paired chain canceled this state.
func (s State1[A]) IsCanceled() bool { return s.c != nil && s.c.canceled }

func (s State1[A]) setOnCancel(f func()) {
	if s.c != nil {
		s.c.onCancel = f
	}
}

// ThenVoid installs f as the continuation, run with the eventual (or
// already-available) result.
func (c Chain1[A]) ThenVoid(f func(A)) {
	if c.c == nil {
		panic("chain: ThenVoid called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		f(c.c.result)
		return
	}
	c.c.onComplete = f
}

// UseState splices other's completion into c.
func (c Chain1[A]) UseState(other State1[A]) {
	if c.c == nil {
		panic("chain: UseState called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		other.Complete(c.c.result)
		return
	}
	c.c.onComplete = other.Complete
}

// ToContinuation discards the value, returning a Chain0 that completes
// when c does.
func (c Chain1[A]) ToContinuation() Chain0 {
	if c.c == nil {
		panic("chain: ToContinuation called on an empty chain")
	}
	out, st := New0()
	c.ThenVoid(func(A) { st.Complete() })
	return out
}

// Cancel marks the paired state canceled.
func (c Chain1[A]) Cancel() {
	if c.c == nil {
		return
	}
	c.c.canceled = true
	if c.c.onCancel != nil {
		c.c.onCancel()
	}
}

// Then1 maps a completed value through f, producing a new chain that
// completes with the plain (non-chain) result of f. Package-level because
// Go methods cannot introduce the extra type parameter B.
func Then1[A, B any](c Chain1[A], f func(A) B) Chain1[B] {
	out, st := New1[B]()
	c.ThenVoid(func(a A) { st.Complete(f(a)) })
	return out
}

// ThenChain1 maps a completed value through f, which itself returns a
// chain; the returned chain completes when f's chain does.
func ThenChain1[A, B any](c Chain1[A], f func(A) Chain1[B]) Chain1[B] {
	var out Chain1[B]
	outState := out.CreateState()
	c.ThenVoid(func(a A) {
		f(a).UseState(outState)
	})
	return out
}
