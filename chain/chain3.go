package chain

// cell3 is the shared state behind a Chain3[A, B, C]/State3[A, B, C] pair.
// This is the arity IoContext's read/write completions use:
// (rawdata.Data, bool /* eof or short-write flag */, uint32 /* errno */).
type cell3[A, B, C any] struct {
	completed  bool
	a          A
	b          B
	cc         C
	onComplete func(A, B, C)
	onCancel   func()
	canceled   bool
	hasThen    bool
}

// Chain3 is the consumer half of a three-argument chain.
type Chain3[A, B, C any] struct{ c *cell3[A, B, C] }

// State3 is the producer half of a Chain3[A, B, C].
type State3[A, B, C any] struct{ c *cell3[A, B, C] }

// New3 returns a freshly linked Chain3[A, B, C]/State3[A, B, C] pair.
func New3[A, B, C any]() (Chain3[A, B, C], State3[A, B, C]) {
	c := &cell3[A, B, C]{}
	return Chain3[A, B, C]{c}, State3[A, B, C]{c}
}

// CreateAndComplete3 returns a chain whose state is already completed.
func CreateAndComplete3[A, B, C any](a A, b B, c2 C) Chain3[A, B, C] {
	ch, st := New3[A, B, C]()
	st.Complete(a, b, c2)
	return ch
}

// CreateState attaches a fresh producer half to c.
func (c *Chain3[A, B, C]) CreateState() State3[A, B, C] {
	if c.c != nil {
		panic("chain: CreateState called on a chain that already has a state")
	}
	cell := &cell3[A, B, C]{}
	c.c = cell
	return State3[A, B, C]{cell}
}

// Complete resolves the chain with (a, b, c).
func (s State3[A, B, C]) Complete(a A, b B, c C) {
	if s.c == nil || s.c.canceled {
		return
	}
	if s.c.onComplete != nil {
		cb := s.c.onComplete
		s.c.onComplete = nil
		cb(a, b, c)
		return
	}
	s.c.a, s.c.b, s.c.cc = a, b, c
	s.c.completed = true
}

// IsCanceled reports whether the paired chain canceled this state.
func (s State3[A, B, C]) IsCanceled() bool { return s.c != nil && s.c.canceled }

func (s State3[A, B, C]) setOnCancel(f func()) {
	if s.c != nil {
		s.c.onCancel = f
	}
}

// ThenVoid installs f as the continuation.
func (c Chain3[A, B, C]) ThenVoid(f func(A, B, C)) {
	if c.c == nil {
		panic("chain: ThenVoid called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		f(c.c.a, c.c.b, c.c.cc)
		return
	}
	c.c.onComplete = f
}

// UseState splices other's completion into c.
func (c Chain3[A, B, C]) UseState(other State3[A, B, C]) {
	if c.c == nil {
		panic("chain: UseState called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		other.Complete(c.c.a, c.c.b, c.c.cc)
		return
	}
	c.c.onComplete = other.Complete
}

// ToContinuation discards all three values.
func (c Chain3[A, B, C]) ToContinuation() Chain0 {
	if c.c == nil {
		panic("chain: ToContinuation called on an empty chain")
	}
	out, st := New0()
	c.ThenVoid(func(A, B, C) { st.Complete() })
	return out
}

// Cancel marks the paired state canceled.
func (c Chain3[A, B, C]) Cancel() {
	if c.c == nil {
		return
	}
	c.c.canceled = true
	if c.c.onCancel != nil {
		c.c.onCancel()
	}
}
