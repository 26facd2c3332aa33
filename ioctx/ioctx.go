// Package ioctx is the asynchronous I/O engine: it owns a table of file
// descriptors keyed by id.ID, submits batched operations to a kernel
// completion-queue interface (internal/uring.Ring), and resolves the
// chain each submission returned as completions arrive. Grounded on
// go-ublk's internal/queue.Runner (the same submit-batch/drain-completions/
// dispatch-to-caller shape, generalized from ublk's FETCH/COMMIT state
// machine to plain read/write/accept/connect/send/recv).
package ioctx

import (
	"sync"
	"sync/atomic"

	"github.com/flowkit/aio"
	"github.com/flowkit/aio/id"
	"github.com/flowkit/aio/internal/interfaces"
	"github.com/flowkit/aio/internal/uring"
)

// Append is the offset sentinel meaning "after all prior append writes
// already queued against this fd".
const Append uint64 = ^uint64(0)

// WholeFile is the size sentinel meaning "the file's size at submission
// time".
const WholeFile uint32 = ^uint32(0)

// processBatchSize bounds how many completions a single Process() call
// drains from the ring before returning control to the caller.
const processBatchSize = 256

type fdKind int

const (
	fdFile fdKind = iota
	fdListenSocket
	fdConnSocket
	fdPseudo
)

type fdEntry struct {
	mu        sync.Mutex
	osFD      int
	kind      fdKind
	path      string
	port      uint16
	appendOff uint64
	closed    bool
}

// TaskDispatcher is the narrow contract ForceDeferredExecution couples to:
// the "deferred dispatch" sink spec.md §1 calls out as an external
// collaborator, with a single post(group, fn) entry point.
type TaskDispatcher interface {
	Post(group string, fn func())
}

// Config configures a Context. Matches go-ublk's Config/DefaultParams
// convention: a plain struct plus a Default constructor, no functional
// options.
type Config struct {
	// PrefixDirectory is prepended to every MapFile path.
	PrefixDirectory string
	// SubmissionQueueDepth sizes the underlying Ring.
	SubmissionQueueDepth uint32
	// MaxFileDescriptors is the fd-table size at which
	// HasTooManyFileDescriptors reports true; registration is not refused.
	MaxFileDescriptors int
	// Logger receives debug/info/warn/error traces; nil disables logging.
	Logger interfaces.Logger
	// Metrics receives per-op counters; nil disables metrics.
	Metrics *aio.Metrics
	// Ring overrides the default platform ring, e.g. with a MockRing in
	// tests.
	Ring uring.Ring
}

// DefaultConfig returns sensible defaults, mirroring go-ublk's
// DefaultParams.
func DefaultConfig() Config {
	return Config{
		SubmissionQueueDepth: aio.DefaultSubmissionQueueDepth,
		MaxFileDescriptors:   aio.DefaultMaxFileDescriptors,
	}
}

type completerEntry struct {
	fd id.ID
	fn func(uring.Result)
}

// Context is the async I/O engine: spec.md's IoContext.
type Context struct {
	cfg    Config
	ring   uring.Ring
	logger interfaces.Logger
	metrics *aio.Metrics

	mu         sync.Mutex
	fds        map[id.ID]*fdEntry
	ids        *id.Allocator
	completers map[uint64]completerEntry
	pending    int

	userData uint64

	// extra carries completions for operations that don't round-trip
	// through the Ring (currently just QueueConnect's blocking connect(2),
	// run off a dedicated goroutine per spec.md §4.3's note that host
	// resolution/connect "must not block the completion loop") back onto
	// whichever thread calls Process()/ProcessCompletedQueries.
	extra chan uring.Result

	dispatcher    TaskDispatcher
	dispatchGroup string
	deferredSet   bool

	stdinID, stdoutID, stderrID id.ID
}

// NewContext creates an IoContext backed by the best available Ring for
// this platform, or cfg.Ring if the caller supplied one.
func NewContext(cfg Config) (*Context, error) {
	if cfg.SubmissionQueueDepth == 0 {
		cfg.SubmissionQueueDepth = aio.DefaultSubmissionQueueDepth
	}
	if cfg.MaxFileDescriptors == 0 {
		cfg.MaxFileDescriptors = aio.DefaultMaxFileDescriptors
	}

	ring := cfg.Ring
	if ring == nil {
		r, err := uring.New(cfg.SubmissionQueueDepth)
		if err != nil {
			return nil, aio.WrapError("new_context", err)
		}
		ring = r
	}

	c := &Context{
		cfg:        cfg,
		ring:       ring,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		fds:        make(map[id.ID]*fdEntry),
		ids:        id.NewAllocator(),
		completers: make(map[uint64]completerEntry),
		extra:      make(chan uring.Result, 256),
	}
	c.stdinID = c.registerFD(&fdEntry{osFD: 0, kind: fdPseudo, path: "stdin"})
	c.stdoutID = c.registerFD(&fdEntry{osFD: 1, kind: fdPseudo, path: "stdout"})
	c.stderrID = c.registerFD(&fdEntry{osFD: 2, kind: fdPseudo, path: "stderr"})
	return c, nil
}

// Stdin, Stdout and Stderr return the pseudo-fd ids for console I/O.
func (c *Context) Stdin() id.ID  { return c.stdinID }
func (c *Context) Stdout() id.ID { return c.stdoutID }
func (c *Context) Stderr() id.ID { return c.stderrID }

func (c *Context) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func (c *Context) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func (c *Context) registerFD(e *fdEntry) id.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	fid := c.ids.Next()
	c.fds[fid] = e
	return fid
}

func (c *Context) lookupOpenFD(fid id.ID) (*fdEntry, bool) {
	c.mu.Lock()
	e, ok := c.fds[fid]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, false
	}
	return e, true
}

func (c *Context) nextUserData() uint64 {
	return atomic.AddUint64(&c.userData, 1)
}

func (c *Context) registerCompleter(ud uint64, fid id.ID, fn func(uring.Result)) {
	c.mu.Lock()
	c.completers[ud] = completerEntry{fd: fid, fn: fn}
	c.pending++
	c.mu.Unlock()
}

// abortCompleter unwinds bookkeeping for an op whose Prepare* call itself
// failed synchronously (ring full, invalid fd) — it never reached the
// kernel, so no completion will ever arrive for it.
func (c *Context) abortCompleter(ud uint64) {
	c.mu.Lock()
	delete(c.completers, ud)
	c.pending--
	c.mu.Unlock()
}

// ForceDeferredExecution routes future completion dispatch through
// dispatcher.Post(group, fn) instead of running continuations inline.
// Per SPEC_FULL's resolution of spec.md §9's open question, this may be
// set at most once, before relying on its effect.
func (c *Context) ForceDeferredExecution(dispatcher TaskDispatcher, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deferredSet {
		return aio.NewError("force_deferred_execution", aio.CodeContractViolation, "deferred execution already configured")
	}
	c.dispatcher = dispatcher
	c.dispatchGroup = group
	c.deferredSet = true
	c.logf("deferred execution armed: completions now posted to dispatcher group %q", group)
	return nil
}

// HasPendingOperations reports whether any operation is queued or still
// in flight.
func (c *Context) HasPendingOperations() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

// HasTooManyFileDescriptors is the fd-pressure signal base_server_interface
// consults before accepting a new connection.
func (c *Context) HasTooManyFileDescriptors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fds) >= c.cfg.MaxFileDescriptors
}

func (c *Context) drainExtra() []uring.Result {
	var out []uring.Result
	for {
		select {
		case res := <-c.extra:
			out = append(out, res)
		default:
			return out
		}
	}
}

// dispatchResults resolves each result's registered completer, either
// inline (default) or via the deferred dispatcher if
// ForceDeferredExecution was called. A multishot completion (More == true)
// keeps its completer registered for the next delivery.
func (c *Context) dispatchResults(results []uring.Result) {
	for _, res := range results {
		c.mu.Lock()
		ce, ok := c.completers[res.UserData]
		if ok && !res.More {
			delete(c.completers, res.UserData)
			c.pending--
		}
		dispatcher, group, deferred := c.dispatcher, c.dispatchGroup, c.deferredSet
		c.mu.Unlock()
		if !ok {
			continue
		}
		if deferred && dispatcher != nil {
			r := res
			fn := ce.fn
			dispatcher.Post(group, func() { fn(r) })
			continue
		}
		ce.fn(res)
	}
}

// Process runs one non-blocking cycle: submit anything staged, then
// dispatch whatever completions are already available.
func (c *Context) Process() error {
	if _, err := c.ring.Submit(); err != nil {
		return aio.WrapError("process", err)
	}
	results := append(c.ring.PeekCompletions(processBatchSize), c.drainExtra()...)
	c.dispatchResults(results)
	return nil
}

// ProcessCompletedQueries blocks until at least one completion is ready
// (submitting nothing new) and dispatches everything currently available.
func (c *Context) ProcessCompletedQueries() error {
	if extra := c.drainExtra(); len(extra) > 0 {
		c.dispatchResults(extra)
		return nil
	}
	results, err := c.ring.WaitCompletions(1)
	if err != nil {
		return aio.WrapError("process_completed_queries", err)
	}
	c.dispatchResults(append(results, c.drainExtra()...))
	return nil
}

// WaitForQueries blocks until the kernel has returned at least one
// completion batch.
func (c *Context) WaitForQueries() error {
	return c.ProcessCompletedQueries()
}

// WaitForSubmitQueries submits everything staged and blocks the calling
// thread until every queued operation has both been submitted and had its
// chain resolved by a user continuation.
func (c *Context) WaitForSubmitQueries() error {
	if _, err := c.ring.Submit(); err != nil {
		return aio.WrapError("wait_for_submit_queries", err)
	}
	for c.HasPendingOperations() {
		if err := c.ProcessCompletedQueries(); err != nil {
			return err
		}
	}
	return nil
}

// CancelAllPendingOperationsFor resolves every pending operation against
// fid with success=false, without closing the fd.
func (c *Context) CancelAllPendingOperationsFor(fid id.ID) {
	c.mu.Lock()
	var toCancel []completerEntry
	for ud, ce := range c.completers {
		if ce.fd == fid {
			toCancel = append(toCancel, ce)
			delete(c.completers, ud)
			c.pending--
		}
	}
	c.mu.Unlock()

	if len(toCancel) > 0 {
		c.debugf("cancelling %d pending operation(s) for fd %s", len(toCancel), fid)
	}
	for _, ce := range toCancel {
		if c.metrics != nil {
			c.metrics.Cancellations.Add(1)
		}
		ce.fn(uring.Result{Res: -int32(cancelledErrno)})
	}
}

// Close initiates close of fid: cancels its pending operations, then closes
// the underlying OS handle.
func (c *Context) Close(fid id.ID) error {
	c.CancelAllPendingOperationsFor(fid)

	c.mu.Lock()
	e, ok := c.fds[fid]
	if ok {
		delete(c.fds, fid)
	}
	c.mu.Unlock()
	if !ok {
		return aio.NewError("close", aio.CodeInvalidParameters, "unknown fd")
	}

	e.mu.Lock()
	e.closed = true
	osFD, kind := e.osFD, e.kind
	e.mu.Unlock()

	c.debugf("closed fd %s", fid)
	if kind == fdPseudo {
		return nil
	}
	return closeOSFD(osFD)
}

// Shutdown closes the Ring and every remaining tracked fd. Call once, when
// the Context itself is being torn down.
func (c *Context) Shutdown() error {
	c.mu.Lock()
	ids := make([]id.ID, 0, len(c.fds))
	for fid := range c.fds {
		ids = append(ids, fid)
	}
	c.mu.Unlock()
	c.logf("shutting down: closing %d tracked fd(s)", len(ids))
	for _, fid := range ids {
		_ = c.Close(fid)
	}
	return c.ring.Close()
}
