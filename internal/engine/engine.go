package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/into/internal/socket"
	"github.com/roach88/into/internal/variant"
)

// DefaultIdleTick bounds how long the loop sleeps after a round that made
// no progress.
const DefaultIdleTick = 10 * time.Millisecond

// Engine schedules the operations of one pipeline.
//
// Thread-safety model:
//   - Execute, Pause, Stop, Interrupt, Wait, State, Err, Wake: safe from any
//     goroutine
//   - AddOperation, Connect, Disconnect: only while Stopped
//   - Operations are only ever called from the loop or their worker, one
//     call at a time
type Engine struct {
	mu          sync.Mutex
	state       State
	changed     chan struct{} // closed and replaced on every state change
	loopDone    chan struct{}
	interrupted bool
	err         error

	ops     []Operation // top-level, insertion order
	byName  map[string]Operation
	nodes   []*node // leaf operations, insertion order
	proxies map[*socket.Output]*socket.Proxy

	wake     chan struct{}
	idleTick time.Duration

	onError  func(error)
	recorder Recorder
	runIDs   RunIDGenerator
	runID    string
	clock    *Clock
	quota    roundQuota
}

// Option configures an Engine.
type Option func(*Engine)

// WithErrorHandler installs the callback that receives the execution error
// which stopped the pipeline. It is called before Stopped is observable.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithRecorder streams every emission to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithIdleTick sets the upper bound on an idle wait.
func WithIdleTick(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.idleTick = d
		}
	}
}

// New returns a stopped engine with no operations.
func New(opts ...Option) *Engine {
	e := &Engine{
		state:    Stopped,
		changed:  make(chan struct{}),
		byName:   make(map[string]Operation),
		proxies:  make(map[*socket.Output]*socket.Proxy),
		wake:     make(chan struct{}, 1),
		idleTick: DefaultIdleTick,
		runIDs:   UUIDv7Generator{},
		clock:    NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddOperation adds op to the pipeline. Compound operations bring their
// children along; every operation name must be unique within the engine.
func (e *Engine) AddOperation(op Operation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Stopped {
		return ErrNotStopped
	}

	var leaves []Operation
	names := map[string]bool{}
	var collect func(op Operation) error
	collect = func(op Operation) error {
		if _, dup := e.byName[op.Name()]; dup || names[op.Name()] {
			return configError(op.Name(), "", ErrDuplicateOperation)
		}
		names[op.Name()] = true
		c, ok := op.(compound)
		if !ok {
			leaves = append(leaves, op)
			return nil
		}
		for _, child := range c.compound().children {
			if err := collect(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := collect(op); err != nil {
		return err
	}

	e.ops = append(e.ops, op)
	var register func(op Operation)
	register = func(op Operation) {
		e.byName[op.Name()] = op
		if c, ok := op.(compound); ok {
			for _, p := range c.compound().proxies() {
				e.proxies[p.Output()] = p
			}
			for _, child := range c.compound().children {
				register(child)
			}
		}
	}
	register(op)
	for _, leaf := range leaves {
		e.nodes = append(e.nodes, &node{op: leaf})
	}
	slog.Debug("operation added", "operation", op.Name(), "leaves", len(leaves))
	return nil
}

// Operation returns the operation called name, searching compound children
// too.
func (e *Engine) Operation(name string) (Operation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	op, ok := e.byName[name]
	return op, ok
}

// Operations returns the top-level operations in insertion order.
func (e *Engine) Operations() []Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.ops)
}

// Connect wires src.output to dst.input, replacing any connection dst.input
// already has.
func (e *Engine) Connect(src, output, dst, input string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Stopped {
		return ErrNotStopped
	}
	from, ok := e.byName[src]
	if !ok {
		return configError(src, "", ErrUnknownOperation)
	}
	to, ok := e.byName[dst]
	if !ok {
		return configError(dst, "", ErrUnknownOperation)
	}
	if err := from.Base().ConnectOutput(output, to, input); err != nil {
		return err
	}
	slog.Debug("connected", "from", src+"."+output, "to", dst+"."+input)
	return nil
}

// Disconnect removes the connection feeding dst.input, if any.
func (e *Engine) Disconnect(dst, input string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Stopped {
		return ErrNotStopped
	}
	to, ok := e.byName[dst]
	if !ok {
		return configError(dst, "", ErrUnknownOperation)
	}
	in := to.Base().Input(input)
	if in == nil {
		return configError(dst, input, ErrUnknownSocket)
	}
	in.DisconnectOutput()
	return nil
}

// Check validates every operation. The first failure is returned as a
// *ConfigError.
func (e *Engine) Check(reset bool) error {
	e.mu.Lock()
	ops := slices.Clone(e.ops)
	e.mu.Unlock()

	for _, op := range ops {
		if err := op.Check(reset); err != nil {
			if IsConfigError(err) {
				return err
			}
			return configError(op.Name(), "", err)
		}
	}
	return nil
}

// Close ends the lifecycle of every leaf operation that implements
// io.Closer, releasing driver handles and similar resources. The engine
// must be stopped.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Stopped {
		return ErrNotStopped
	}
	var errs []error
	for _, n := range e.nodes {
		if c, ok := n.op.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", n.op.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the execution error that stopped the last run, or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// RunID returns the identifier of the current or last run.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Wake ends an idle wait early. Safe to call from any goroutine, including
// driver callbacks.
func (e *Engine) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Execute checks the pipeline and starts the scheduler loop. From Stopped
// it resets all per-run state; from Paused it resumes. A failing check
// leaves the engine Stopped. Execute on a running engine is a no-op.
func (e *Engine) Execute(ctx context.Context) error {
	e.mu.Lock()
	from := e.state
	e.mu.Unlock()
	switch from {
	case Running:
		return nil
	case Stopped, Paused:
	default:
		return transition(from, Running)
	}

	reset := from == Stopped
	if err := e.Check(reset); err != nil {
		slog.Error("pipeline check failed", "error", err)
		if from == Paused {
			e.stopPaused()
		}
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return fmt.Errorf("%w: state changed to %s during check", ErrIllegalTransition, e.state)
	}
	if reset {
		e.prepare()
	}
	e.interrupted = false
	for _, n := range e.nodes {
		if n.op.Base().IsThreaded() {
			n.worker = startWorker()
		}
	}
	if err := e.setStateLocked(Running); err != nil {
		return err
	}
	done := make(chan struct{})
	e.loopDone = done
	go e.loop(ctx, done)
	slog.Info("engine running", "run_id", e.runID, "operations", len(e.nodes), "reset", reset)
	return nil
}

// prepare discards per-run state. Caller holds e.mu.
func (e *Engine) prepare() {
	e.err = nil
	e.runID = e.runIDs.Generate()
	e.clock = NewClock()
	e.quota.reset()
	for _, n := range e.nodes {
		n.finished = false
		n.inputs = n.inputs[:0]
		n.groups = n.groups[:0]
		base := n.op.Base()
		for _, in := range base.inputs {
			in.Clear()
			if e.live(in) {
				n.inputs = append(n.inputs, in)
				if !slices.Contains(n.groups, in.GroupID()) {
					n.groups = append(n.groups, in.GroupID())
				}
			}
		}
		slices.Sort(n.groups)
		for _, out := range base.outputs {
			out.Discard()
			out.SetObserver(e.observer(e.runID, n.op.Name(), out.Name()))
		}
	}
	if ro, ok := e.recorder.(RunObserver); ok {
		ro.RunStarted(e.runID)
	}
}

// live reports whether in has an upstream that is not a dangling proxy.
func (e *Engine) live(in *socket.Input) bool {
	out := in.ConnectedOutput()
	for depth := 0; out != nil && depth < 64; depth++ {
		p, ok := e.proxies[out]
		if !ok {
			return true
		}
		out = p.Input().ConnectedOutput()
	}
	return false
}

// observer records emissions of one output under runID, fixed when the run
// is prepared.
func (e *Engine) observer(runID, op, output string) func(variant.Variant) {
	return func(v variant.Variant) {
		if e.recorder == nil {
			return
		}
		em := Emission{
			RunID:     runID,
			Seq:       e.clock.Next(),
			Operation: op,
			Output:    output,
			Value:     v,
		}
		if err := e.recorder.Record(em); err != nil {
			slog.Warn("recording emission failed", "operation", op, "output", output, "error", err)
		}
	}
}

// Pause stops the loop after the current round. Queued objects are kept for
// the next Execute.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Pausing, Paused:
		return nil
	}
	if err := e.setStateLocked(Pausing); err != nil {
		return err
	}
	e.Wake()
	return nil
}

// Stop finishes the sources and lets queued data drain through the
// pipeline before reaching Stopped. Idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case Stopped, Stopping:
		e.mu.Unlock()
		return nil
	case Paused:
		e.mu.Unlock()
		e.stopPaused()
		return nil
	}
	defer e.mu.Unlock()
	if err := e.setStateLocked(Stopping); err != nil {
		return err
	}
	e.Wake()
	return nil
}

// Interrupt stops the loop after the current round without draining.
// Idempotent.
func (e *Engine) Interrupt() error {
	e.mu.Lock()
	switch e.state {
	case Stopped:
		e.mu.Unlock()
		return nil
	case Paused:
		e.mu.Unlock()
		e.stopPaused()
		return nil
	}
	e.interrupted = true
	e.mu.Unlock()
	e.Wake()
	return nil
}

// stopPaused moves a paused engine straight to Stopped.
func (e *Engine) stopPaused() {
	e.mu.Lock()
	runID := e.runID
	e.mu.Unlock()
	e.notifyFinished(runID, nil)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Paused {
		_ = e.setStateLocked(Stopped)
	}
}

// Wait blocks until the engine reaches target or ctx ends. Once Wait
// returns for Stopped or Paused, no operation is being called and all
// worker goroutines have exited.
func (e *Engine) Wait(ctx context.Context, target State) error {
	for {
		e.mu.Lock()
		state, changed, done := e.state, e.changed, e.loopDone
		e.mu.Unlock()
		if state == target {
			if done != nil && (target == Stopped || target == Paused) {
				select {
				case <-done:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) setStateLocked(to State) error {
	if err := transition(e.state, to); err != nil {
		return err
	}
	slog.Debug("engine state", "from", e.state, "to", to)
	e.state = to
	close(e.changed)
	e.changed = make(chan struct{})
	return nil
}

// loop is the scheduler goroutine of one Execute.
func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	e.mu.Lock()
	runID := e.runID
	e.mu.Unlock()
	for {
		e.mu.Lock()
		halt := e.interrupted || ctx.Err() != nil
		pausing := e.state == Pausing
		draining := e.state == Stopping
		if pausing && !halt {
			e.stopWorkers()
			_ = e.setStateLocked(Paused)
			e.mu.Unlock()
			slog.Info("engine paused", "run_id", runID)
			return
		}
		e.mu.Unlock()
		if halt {
			e.halt(nil)
			return
		}

		progress, err := e.round(ctx, draining)
		if err != nil {
			e.halt(err)
			return
		}
		if e.complete() {
			e.halt(nil)
			return
		}
		if !progress {
			e.idle(ctx)
			continue
		}
		if err := e.quota.check(runID); err != nil {
			e.halt(err)
			return
		}
	}
}

// round visits every operation once.
func (e *Engine) round(ctx context.Context, draining bool) (bool, error) {
	progress := false
	for _, n := range e.nodes {
		p, err := e.step(ctx, n, draining)
		if err != nil {
			return progress, &ExecutionError{Operation: n.op.Name(), Err: err}
		}
		progress = progress || p
	}
	return progress, nil
}

// complete reports whether every operation finished and every output
// drained.
func (e *Engine) complete() bool {
	for _, n := range e.nodes {
		if !n.finished {
			return false
		}
		for _, out := range n.op.Base().outputs {
			if out.Pending() > 0 {
				return false
			}
		}
	}
	return true
}

func (e *Engine) idle(ctx context.Context) {
	t := time.NewTimer(e.idleTick)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-e.wake:
	case <-t.C:
	}
}

// halt ends the run. Error handler and run observer see the outcome before
// Stopped is published.
func (e *Engine) halt(err error) {
	e.mu.Lock()
	e.stopWorkers()
	if err != nil {
		e.err = err
	}
	runID := e.runID
	e.mu.Unlock()

	if err != nil {
		slog.Error("pipeline failed", "run_id", runID, "error", err)
		if e.onError != nil {
			e.onError(err)
		}
	}
	e.notifyFinished(runID, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	if setErr := e.setStateLocked(Stopped); setErr != nil {
		slog.Error("engine halt", "error", setErr)
	}
	slog.Info("engine stopped", "run_id", runID)
}

func (e *Engine) notifyFinished(runID string, err error) {
	if ro, ok := e.recorder.(RunObserver); ok {
		ro.RunFinished(runID, err)
	}
}

// stopWorkers shuts down threaded operation workers. Caller holds e.mu.
func (e *Engine) stopWorkers() {
	for _, n := range e.nodes {
		if n.worker != nil {
			n.worker.stop()
			n.worker = nil
		}
	}
}
