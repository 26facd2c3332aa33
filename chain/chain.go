// Package chain implements the single-shot, continuation-passing async
// primitive described by the toolkit: a producer half ("state") and a
// consumer half ("chain") sharing exactly one pair-instance at a time.
//
// Go has no variadic generics, so the fixed-arity tuple chain<Args...> from
// the source design is expressed as one type per arity actually needed by
// the rest of the toolkit: Chain0 (continuation-only), Chain1[A],
// Chain2[A, B] and Chain3[A, B, C] (IoContext's read/write completions are
// (rawdata.Data, bool, uint32) triples). Each pair shares one heap cell
// rather than raw mutual back-pointers — Go's garbage collector already
// makes the C++ original's "clear the other side's pointer on destruction"
// dance unnecessary, so the cell just outlives whichever side is dropped
// first and is reclaimed once both are.
package chain

// cell0 is the shared state behind a Chain0/State0 pair.
type cell0 struct {
	completed  bool
	hasResult  bool // unused; completed alone records completion
	onComplete func()
	onCancel   func()
	canceled   bool
	hasThen    bool // a continuation (then_void or use_state target) is installed
}

// Chain0 is the consumer half of a zero-argument chain — "the previous
// operation has completed", used for cancellation-only signals and as the
// return type of ToContinuation.
type Chain0 struct{ c *cell0 }

// State0 is the producer half of a Chain0.
type State0 struct{ c *cell0 }

// New0 returns a freshly linked Chain0/State0 pair.
func New0() (Chain0, State0) {
	c := &cell0{}
	return Chain0{c}, State0{c}
}

// CreateAndComplete0 returns a chain whose state is already completed.
func CreateAndComplete0() Chain0 {
	ch, st := New0()
	st.Complete()
	return ch
}

// CreateState attaches a fresh producer half to c. Precondition: c has no
// state already attached (c must be the zero Chain0{} or a chain that has
// not yet had CreateState called on it).
func (c *Chain0) CreateState() State0 {
	if c.c != nil {
		panic("chain: CreateState called on a chain that already has a state")
	}
	cell := &cell0{}
	c.c = cell
	return State0{cell}
}

// Complete resolves the chain. A no-op if the state was canceled. If a
// continuation is already registered, it runs synchronously and is
// cleared; otherwise the completion is stashed for a future ThenVoid.
func (s State0) Complete() {
	if s.c == nil || s.c.canceled {
		return
	}
	if s.c.onComplete != nil {
		cb := s.c.onComplete
		s.c.onComplete = nil
		cb()
		return
	}
	s.c.completed = true
}

// IsCanceled reports whether the paired chain canceled this state.
func (s State0) IsCanceled() bool { return s.c != nil && s.c.canceled }

// setOnCancel installs a hook invoked (in addition to marking canceled)
// when the paired chain calls Cancel. Used internally by MultiChain to
// fan cancellation out to its inputs.
func (s State0) setOnCancel(f func()) {
	if s.c != nil {
		s.c.onCancel = f
	}
}

// ThenVoid installs f as the continuation. If the state already completed
// (early completion), f runs synchronously now. Installing a second
// continuation, or installing one after UseState, is a contract violation.
func (c Chain0) ThenVoid(f func()) {
	if c.c == nil {
		panic("chain: ThenVoid called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		f()
		return
	}
	c.c.onComplete = f
}

// UseState splices other's completion into c: when c's paired state
// completes, other completes too. Precondition: c has no continuation
// installed yet (then_void and use_state are mutually exclusive).
func (c Chain0) UseState(other State0) {
	if c.c == nil {
		panic("chain: UseState called on an empty chain")
	}
	if c.c.hasThen {
		panic("chain: then_void/use_state installed twice on the same chain")
	}
	c.c.hasThen = true
	if c.c.completed {
		c.c.completed = false
		other.Complete()
		return
	}
	c.c.onComplete = other.Complete
}

// ToContinuation projects c to itself — present for symmetry with the
// other arities' ToContinuation, which discard their values.
func (c Chain0) ToContinuation() Chain0 { return c }

// Cancel marks the paired state canceled; its future Complete becomes a
// no-op and no continuation ever fires.
func (c Chain0) Cancel() {
	if c.c == nil {
		return
	}
	c.c.canceled = true
	if c.c.onCancel != nil {
		c.c.onCancel()
	}
}
