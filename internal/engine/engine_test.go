package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petermattis/goid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/testutil"
	"github.com/roach88/into/internal/variant"
)

func newLinearPipeline(t *testing.T, opts ...Option) (*Engine, *sink) {
	t.Helper()
	e := New(opts...)
	require.NoError(t, e.AddOperation(newSliceSource(t, "source", ints(1, 2, 3)...)))
	require.NoError(t, e.AddOperation(newDoubler(t, "double")))
	out := newSink(t, "sink", variant.AnyKind)
	require.NoError(t, e.AddOperation(out))
	require.NoError(t, e.Connect("source", "output", "double", "input"))
	require.NoError(t, e.Connect("double", "output", "sink", "input"))
	return e, out
}

func TestEngine_RunsToCompletion(t *testing.T) {
	e, out := newLinearPipeline(t)

	runToCompletion(t, e)

	assert.Equal(t, ints(2, 4, 6), out.values())
	assert.Equal(t, 1, out.finished)
	assert.Equal(t, Stopped, e.State())
	assert.NoError(t, e.Err())
}

func TestEngine_RecordsEmissions(t *testing.T) {
	rec := &memRecorder{}
	e, _ := newLinearPipeline(t,
		WithRecorder(rec),
		WithRunIDGenerator(testutil.NewFixedRunIDs("run-1")),
	)

	runToCompletion(t, e)

	require.Equal(t, []string{"run-1"}, rec.started)
	require.Equal(t, []error{nil}, rec.finished)
	// 3 values + Stop from the source, 3 values + Stop from double.
	require.Len(t, rec.emissions, 8)
	for i, em := range rec.emissions {
		assert.Equal(t, "run-1", em.RunID)
		assert.Equal(t, int64(i+1), em.Seq)
	}
	assert.Equal(t, Emission{RunID: "run-1", Seq: 1, Operation: "source", Output: "output", Value: variant.Int64(1)}, rec.emissions[0])
	last := rec.emissions[len(rec.emissions)-1]
	assert.Equal(t, "double", last.Operation)
	assert.Equal(t, variant.Control{Code: variant.Stop}, last.Value)
}

func TestEngine_Rerun(t *testing.T) {
	e, out := newLinearPipeline(t, WithRunIDGenerator(testutil.NewFixedRunIDs("run-1", "run-2")))

	runToCompletion(t, e)
	assert.Equal(t, "run-1", e.RunID())
	runToCompletion(t, e)

	assert.Equal(t, "run-2", e.RunID())
	assert.Equal(t, ints(2, 4, 6, 2, 4, 6), out.values())
}

func TestEngine_CheckFailureLeavesStopped(t *testing.T) {
	e := New()
	require.NoError(t, e.AddOperation(newSink(t, "sink", variant.AnyKind)))

	err := e.Execute(context.Background())

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "sink", ce.Operation)
	assert.Equal(t, "input", ce.Field)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, Stopped, e.State())
}

func TestEngine_ExecutionErrorStopsPipeline(t *testing.T) {
	var handled []error
	e := New(WithErrorHandler(func(err error) { handled = append(handled, err) }))
	require.NoError(t, e.AddOperation(newSliceSource(t, "source", ints(1)...)))
	require.NoError(t, e.AddOperation(newFailing(t, "fail")))
	require.NoError(t, e.Connect("source", "output", "fail", "input"))

	runToCompletion(t, e)

	err := e.Err()
	require.Error(t, err)
	ee, ok := AsExecutionError(err)
	require.True(t, ok)
	assert.Equal(t, "fail", ee.Operation)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []error{err}, handled)

	// Topology survives for a retry.
	fail, _ := e.Operation("fail")
	assert.True(t, fail.Base().Input("input").IsConnected())
}

func TestEngine_RunFinishedCarriesRunID(t *testing.T) {
	rec := &memRecorder{}
	e := New(WithRecorder(rec), WithRunIDGenerator(testutil.NewFixedRunIDs("run-1")))
	require.NoError(t, e.AddOperation(newSliceSource(t, "source", ints(1)...)))
	require.NoError(t, e.AddOperation(newFailing(t, "fail")))
	require.NoError(t, e.Connect("source", "output", "fail", "input"))
	runToCompletion(t, e)

	var calls atomic.Int64
	p := New(WithRecorder(rec), WithRunIDGenerator(testutil.NewFixedRunIDs("run-2")))
	require.NoError(t, p.AddOperation(&countingSource{BaseOperation: NewBaseOperation("source"), calls: &calls}))
	ctx := waitCtx(t)
	require.NoError(t, p.Execute(ctx))
	require.NoError(t, p.Pause())
	require.NoError(t, p.Wait(ctx, Paused))
	require.NoError(t, p.Stop())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"run-1", "run-2"}, rec.started)
	assert.Equal(t, []string{"run-1", "run-2"}, rec.closed)
	require.Len(t, rec.finished, 2)
	assert.ErrorIs(t, rec.finished[0], errBoom)
	assert.NoError(t, rec.finished[1])
	for _, em := range rec.emissions {
		assert.Equal(t, "run-1", em.RunID)
	}
}

func TestEngine_TypeMismatchIsExecutionError(t *testing.T) {
	e := New()
	require.NoError(t, e.AddOperation(newSliceSource(t, "source", variant.String("text"))))
	require.NoError(t, e.AddOperation(newSink(t, "sink", variant.NumericKinds)))
	require.NoError(t, e.Connect("source", "output", "sink", "input"))

	runToCompletion(t, e)

	assert.True(t, IsExecutionError(e.Err()))
	assert.True(t, variant.IsTypeError(e.Err()))
}

func TestEngine_TopologyOnlyWhileStopped(t *testing.T) {
	e := New()
	src := newSliceSource(t, "source", ints(1)...)
	src.repeat = true
	require.NoError(t, e.AddOperation(src))
	require.NoError(t, e.AddOperation(newSink(t, "sink", variant.AnyKind)))
	require.NoError(t, e.Connect("source", "output", "sink", "input"))

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	t.Cleanup(func() { _ = e.Interrupt() })

	assert.ErrorIs(t, e.Connect("source", "output", "sink", "input"), ErrNotStopped)
	assert.ErrorIs(t, e.Disconnect("sink", "input"), ErrNotStopped)
	assert.ErrorIs(t, e.AddOperation(newSink(t, "other", variant.AnyKind)), ErrNotStopped)

	require.NoError(t, e.Interrupt())
	require.NoError(t, e.Wait(ctx, Stopped))
	assert.NoError(t, e.Disconnect("sink", "input"))
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	e := New()

	// Already stopped.
	assert.NoError(t, e.Stop())
	assert.NoError(t, e.Stop())
	assert.NoError(t, e.Interrupt())
	assert.NoError(t, e.Interrupt())
	assert.Equal(t, Stopped, e.State())

	src := newSliceSource(t, "source", ints(1, 2)...)
	src.repeat = true
	out := newSink(t, "sink", variant.AnyKind)
	require.NoError(t, e.AddOperation(src))
	require.NoError(t, e.AddOperation(out))
	require.NoError(t, e.Connect("source", "output", "sink", "input"))

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	require.NoError(t, e.Wait(ctx, Stopped))
	assert.NoError(t, e.Interrupt())
	assert.NoError(t, e.Stop())

	assert.Equal(t, 1, out.finished, "graceful stop finishes the sink once")
	assert.NoError(t, e.Err())
}

func TestEngine_InterruptStopsRepeatingSource(t *testing.T) {
	var calls atomic.Int64
	e := New()
	src := &countingSource{BaseOperation: NewBaseOperation("source"), calls: &calls}
	require.NoError(t, e.AddOperation(src))

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.Eventually(t, func() bool { return calls.Load() > 3 }, time.Second, time.Millisecond)
	require.NoError(t, e.Interrupt())
	require.NoError(t, e.Wait(ctx, Stopped))

	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no Process call after Stopped")
}

func TestEngine_PauseResume(t *testing.T) {
	var calls atomic.Int64
	e := New()
	require.NoError(t, e.AddOperation(&countingSource{BaseOperation: NewBaseOperation("source"), calls: &calls}))

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, e.Pause())
	require.NoError(t, e.Pause())
	require.NoError(t, e.Wait(ctx, Paused))
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no Process call while paused")

	require.NoError(t, e.Execute(ctx))
	require.Eventually(t, func() bool { return calls.Load() > n }, time.Second, time.Millisecond)

	require.NoError(t, e.Interrupt())
	require.NoError(t, e.Wait(ctx, Stopped))
}

func TestEngine_StopFromPaused(t *testing.T) {
	var calls atomic.Int64
	e := New()
	require.NoError(t, e.AddOperation(&countingSource{BaseOperation: NewBaseOperation("source"), calls: &calls}))

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.NoError(t, e.Pause())
	require.NoError(t, e.Wait(ctx, Paused))

	require.NoError(t, e.Stop())
	assert.Equal(t, Stopped, e.State())
}

func TestEngine_ContextCancelStops(t *testing.T) {
	var calls atomic.Int64
	e := New()
	require.NoError(t, e.AddOperation(&countingSource{BaseOperation: NewBaseOperation("source"), calls: &calls}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Execute(ctx))
	cancel()

	require.NoError(t, e.Wait(waitCtx(t), Stopped))
}

func TestEngine_PauseFromStoppedIsIllegal(t *testing.T) {
	e := New()

	assert.ErrorIs(t, e.Pause(), ErrIllegalTransition)
}

func TestEngine_DuplicateOperation(t *testing.T) {
	e := New()
	require.NoError(t, e.AddOperation(newSink(t, "a", variant.AnyKind)))

	err := e.AddOperation(newSink(t, "a", variant.AnyKind))

	assert.ErrorIs(t, err, ErrDuplicateOperation)
}

func TestEngine_ConnectUnknown(t *testing.T) {
	e := New()
	require.NoError(t, e.AddOperation(newSliceSource(t, "source")))
	require.NoError(t, e.AddOperation(newSink(t, "sink", variant.AnyKind)))

	assert.ErrorIs(t, e.Connect("nope", "output", "sink", "input"), ErrUnknownOperation)
	assert.ErrorIs(t, e.Connect("source", "nope", "sink", "input"), ErrUnknownSocket)
	assert.ErrorIs(t, e.Connect("source", "output", "sink", "nope"), ErrUnknownSocket)
}

func TestEngine_MaxRounds(t *testing.T) {
	e := New(WithMaxRounds(5))
	src := newSliceSource(t, "source", ints(7)...)
	src.repeat = true
	out := newSink(t, "sink", variant.AnyKind)
	require.NoError(t, e.AddOperation(src))
	require.NoError(t, e.AddOperation(out))
	require.NoError(t, e.Connect("source", "output", "sink", "input"))

	runToCompletion(t, e)

	assert.True(t, IsRoundsExceededError(e.Err()))
	assert.Len(t, out.values(), 6)
}

func TestEngine_ThreadedOperation(t *testing.T) {
	e := New()
	src := newSliceSource(t, "source", ints(1, 2)...)
	plain := &goroutineTracker{BaseOperation: NewBaseOperation("plain")}
	threaded := &goroutineTracker{BaseOperation: NewBaseOperation("threaded")}
	threaded.SetThreaded(true)
	for _, p := range []*goroutineTracker{plain, threaded} {
		_, err := p.AddInput("input", variant.AnyKind)
		require.NoError(t, err)
		require.NoError(t, e.AddOperation(p))
	}
	require.NoError(t, e.AddOperation(src))
	require.NoError(t, e.Connect("source", "output", "plain", "input"))
	require.NoError(t, e.Connect("source", "output", "threaded", "input"))

	runToCompletion(t, e)

	require.Len(t, plain.ids, 2)
	require.Len(t, threaded.ids, 2)
	assert.Equal(t, plain.ids[0], plain.ids[1])
	assert.Equal(t, threaded.ids[0], threaded.ids[1], "one worker per threaded operation")
	assert.NotEqual(t, plain.ids[0], threaded.ids[0])
}

// countingSource emits nothing and counts its calls.
type countingSource struct {
	BaseOperation
	calls *atomic.Int64
}

func (c *countingSource) Process(context.Context, *Round) error {
	c.calls.Add(1)
	return nil
}

// goroutineTracker records the goroutine each Process call runs on.
type goroutineTracker struct {
	BaseOperation
	ids []int64
}

func (g *goroutineTracker) Process(context.Context, *Round) error {
	g.ids = append(g.ids, goid.Get())
	return nil
}

type closingSink struct {
	*sink
	closed int
}

func (c *closingSink) Close() error {
	c.closed++
	return nil
}

func TestEngine_Close(t *testing.T) {
	e, _ := newLinearPipeline(t)
	c := &closingSink{sink: newSink(t, "closer", variant.AnyKind)}
	require.NoError(t, e.AddOperation(c))
	require.NoError(t, e.Connect("double", "output", "closer", "input"))

	runToCompletion(t, e)
	require.NoError(t, e.Close())

	assert.Equal(t, 1, c.closed)
}
