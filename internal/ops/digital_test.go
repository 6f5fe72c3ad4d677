package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
	"github.com/roach88/into/internal/testutil"
	"github.com/roach88/into/internal/variant"
)

// board returns a manually stepped scheduler on a fake clock and a
// simulated board with two channels each way.
func board(t *testing.T) (*iothread.Scheduler, *iothread.SimDriver, *testutil.FakeClock, *Env) {
	t.Helper()
	clock := testutil.NewFakeClock(testutil.DayStart(5))
	io := iothread.New(iothread.WithTick(0), iothread.WithClock(clock))
	sim := iothread.NewSimDriver(2, 2)
	return io, sim, clock, NewEnv(io, sim)
}

func outputPipeline(t *testing.T, env *Env, props map[string]variant.Variant) *engine.Engine {
	t.Helper()
	out, err := NewDigitalOutput("out", env)
	require.NoError(t, err)
	for k, v := range props {
		require.NoError(t, out.SetProperty(k, v))
	}
	e := engine.New()
	add(t, e, source(t, "trigger", variant.Bool(true)), out)
	connect(t, e, "trigger", "output", "out", "trigger")
	return e
}

func TestDigitalOutput_DirectPulse(t *testing.T) {
	io, sim, clock, env := board(t)
	e := outputPipeline(t, env, map[string]variant.Variant{
		"channel":    variant.Int64(1),
		"pulseWidth": variant.Int64(50),
	})
	run(t, e)

	assert.Equal(t, 1.0, sim.Output(1))
	waiting := io.Waiting()
	require.Len(t, waiting, 1)
	assert.Equal(t, iothread.Timestamp{Day: 5, Msecs: 50}, waiting[0].At)

	clock.Advance(50 * time.Millisecond)
	io.Step()
	assert.Equal(t, 0.0, sim.Output(1))
	assert.Equal(t, []iothread.Change{{Channel: 1, Value: 1}, {Channel: 1, Value: 0}}, sim.Changes())

	require.NoError(t, e.Close())
	assert.Zero(t, io.Refs())
}

func TestDigitalOutput_Delayed(t *testing.T) {
	io, sim, clock, env := board(t)
	clock.Advance(100 * time.Millisecond)
	e := outputPipeline(t, env, map[string]variant.Variant{"delay": variant.Int64(30)})
	run(t, e)

	assert.Equal(t, 0.0, sim.Output(0))
	waiting := io.Waiting()
	require.Len(t, waiting, 1)
	assert.Equal(t, iothread.Timestamp{Day: 5, Msecs: 130}, waiting[0].At)

	clock.Advance(30 * time.Millisecond)
	io.Step()
	assert.Equal(t, 1.0, sim.Output(0))
	assert.Empty(t, io.Waiting())
	require.NoError(t, e.Close())
}

func TestDigitalOutput_CloseFlushesWaiting(t *testing.T) {
	io, sim, _, env := board(t)
	e := outputPipeline(t, env, map[string]variant.Variant{"delay": variant.Int64(1000)})
	run(t, e)
	require.Len(t, io.Waiting(), 1)

	require.NoError(t, e.Close())
	assert.Empty(t, io.Waiting())
	assert.Equal(t, 1.0, sim.Output(0))
	assert.Zero(t, io.Refs())
}

func TestDigitalOutput_NoBoard(t *testing.T) {
	out, err := NewDigitalOutput("out", nil)
	require.NoError(t, err)
	out.Input("trigger").SetOptional(true)

	err = out.Check(true)
	require.Error(t, err)
	assert.True(t, engine.IsConfigError(err))
	assert.ErrorIs(t, err, ErrNoBoard)
}

func TestDigitalInput_Edges(t *testing.T) {
	io, sim, _, env := board(t)
	in, err := NewDigitalInput("in", env)
	require.NoError(t, err)
	require.NoError(t, in.SetProperty("channel", variant.Int64(1)))
	require.NoError(t, in.SetProperty("maxEdges", variant.Int64(2)))
	sink := collector(t, "sink")

	e := engine.New()
	env.BindWaker(e)
	add(t, e, in, sink)
	connect(t, e, "in", "edge", "sink", "input")

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	assert.Equal(t, 1, io.PollingInputs())

	sim.SetInput(1, true)
	io.Step()
	io.Step() // no change, no edge
	sim.SetInput(1, false)
	io.Step()

	require.NoError(t, e.Wait(ctx, engine.Stopped))
	require.NoError(t, e.Err())
	assert.Equal(t, []variant.Variant{variant.Bool(true), variant.Bool(false)}, sink.Values())

	require.NoError(t, e.Close())
	assert.Zero(t, io.PollingInputs())
	assert.Zero(t, io.Refs())
}

func TestDigitalInput_ChannelChangeKeepsSiblings(t *testing.T) {
	clock := testutil.NewFakeClock(testutil.DayStart(5))
	io := iothread.New(iothread.WithTick(0), iothread.WithClock(clock))
	sim := iothread.NewSimDriver(0, 3)
	env := NewEnv(io, sim)

	a, err := NewDigitalInput("a", env)
	require.NoError(t, err)
	b, err := NewDigitalInput("b", env)
	require.NoError(t, err)
	require.NoError(t, b.SetProperty("channel", variant.Int64(1)))
	require.NoError(t, a.Check(true))
	require.NoError(t, b.Check(true))

	require.NoError(t, a.SetProperty("channel", variant.Int64(2)))
	require.NoError(t, a.Check(false))
	assert.Equal(t, 2, io.PollingInputs())
	assert.Equal(t, 2, io.Refs())

	sim.SetInput(1, true)
	io.Step()

	b.mu.Lock()
	assert.Equal(t, []bool{true}, b.edges)
	b.mu.Unlock()
	a.mu.Lock()
	assert.Empty(t, a.edges)
	a.mu.Unlock()

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	assert.Zero(t, io.Refs())
}
