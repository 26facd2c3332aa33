package chain

// cell2 is the shared state behind a Chain2[A, B]/State2[A, B] pair.
type cell2[A, B any] struct {
	completed  bool
	a          A
	b          B
	onComplete func(A, B)
	onCancel   func()
	canceled   bool
	hasThen    bool
}

// Chain2 is the consumer half of a two-argument chain, used by completions
// that carry a value plus a status (e.g. QueueSend's "bytes sent, errno",
// conn.QueueConnect's "connection, ok").
type Chain2[A, B any] struct{ c *cell2[A, B] }

// State2 is the producer half of a Chain2[A, B].
type State2[A, B any] struct{ c *cell2[A, B] }

// New2 returns a freshly linked Chain2[A, B]/State2[A, B] pair.
func New2[A, B any]() (Chain2[A, B], State2[A, B]) {
	c := &cell2[A, B]{}
	return Chain2[A, B]{c}, State2[A, B]{c}
}

// CreateAndComplete2 returns a chain whose state is already completed.
func CreateAndComplete2[A, B any](a A, b B) Chain2[A, B] {
	ch, st := New2[A, B]()
	st.Complete(a, b)
	return ch
}

// CreateState attaches a fresh producer half to c.
func (c *Chain2[A, B]) CreateState() State2[A, B] {
	if c.c != nil {
		panic("chain: CreateState called on a chain that already has a state")
	}
	cell := &cell2[A, B]{}
	c.c = cell
	return State2[A, B]{cell}
}

// Complete resolves the chain with (a, b).
func (s State2[A, B]) Complete(a A, b B) {
	if s.c == nil || s.c.canceled {
		return
	}
	if s.c.onComplete != nil {
		cb := s.c.onComplete
		s.c.onComplete = nil
		cb(a, b)
		return
	}
	s.c.a, s.c.b = a, b
	s.c.completed = true
}

// IsCanceled reports whether the paired chain canceled this state.
func (s State2[A, B]) IsCanceled() bool { return s.c != nil && s.c.canceled }

func (s State2[A, B]) setOnCancel(f func()) {
	if s.c != nil {
		s.c.onCancel = f
	}
}

// ThenVoid installs f as the continuation.
func (c Chain2[A, B]) ThenVoid(f func(A, B)) {
	if c.c == nil {
		panic("chain: ThenVoid called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		f(c.c.a, c.c.b)
		return
	}
	c.c.onComplete = f
}

// UseState splices other's completion into c.
func (c Chain2[A, B]) UseState(other State2[A, B]) {
	if c.c == nil {
		panic("chain: UseState called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		other.Complete(c.c.a, c.c.b)
		return
	}
	c.c.onComplete = other.Complete
}

// ToContinuation discards both values.
func (c Chain2[A, B]) ToContinuation() Chain0 {
	if c.c == nil {
		panic("chain: ToContinuation called on an empty chain")
	}
	out, st := New0()
	c.ThenVoid(func(A, B) { st.Complete() })
	return out
}

// Cancel marks the paired state canceled.
func (c Chain2[A, B]) Cancel() {
	if c.c == nil {
		return
	}
	c.c.canceled = true
	if c.c.onCancel != nil {
		c.c.onCancel()
	}
}
