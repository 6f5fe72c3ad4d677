package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/variant"
)

func newDoubleAndWatch(t *testing.T) (*Compound, *sink) {
	t.Helper()
	c := NewCompound("group")
	d := newDoubler(t, "inner_double")
	watch := newSink(t, "inner_watch", variant.AnyKind)
	require.NoError(t, c.AddChild(d))
	require.NoError(t, c.AddChild(watch))
	_, err := c.ExposeInput("input", d.Input("input"), watch.Input("input"))
	require.NoError(t, err)
	_, err = c.ExposeOutput("output", d, "output")
	require.NoError(t, err)
	return c, watch
}

func TestCompound_FanOutAndForward(t *testing.T) {
	e := New()
	c, watch := newDoubleAndWatch(t)
	outer := newSink(t, "outer", variant.AnyKind)
	require.NoError(t, e.AddOperation(newSliceSource(t, "source", ints(1, 2, 3)...)))
	require.NoError(t, e.AddOperation(c))
	require.NoError(t, e.AddOperation(outer))
	require.NoError(t, e.Connect("source", "output", "group", "input"))
	require.NoError(t, e.Connect("group", "output", "outer", "input"))

	runToCompletion(t, e)

	require.NoError(t, e.Err())
	assert.Equal(t, ints(1, 2, 3), watch.values(), "each object reaches every child once")
	assert.Equal(t, ints(2, 4, 6), outer.values())
	assert.Equal(t, 1, watch.finished)
	assert.Equal(t, 1, outer.finished)
}

func TestCompound_UnconnectedInputFailsCheck(t *testing.T) {
	e := New()
	c, _ := newDoubleAndWatch(t)
	require.NoError(t, e.AddOperation(c))

	err := e.Check(true)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "group", ce.Operation)
	assert.Equal(t, "input", ce.Field)
}

func TestCompound_ChildrenAreAddressable(t *testing.T) {
	e := New()
	c, _ := newDoubleAndWatch(t)
	require.NoError(t, e.AddOperation(c))

	op, ok := e.Operation("inner_double")
	require.True(t, ok)
	assert.Equal(t, "inner_double", op.Name())
	assert.Len(t, e.Operations(), 1)
}

func TestCompound_DuplicateChildNames(t *testing.T) {
	c := NewCompound("group")
	require.NoError(t, c.AddChild(newSink(t, "a", variant.AnyKind)))

	assert.ErrorIs(t, c.AddChild(newSink(t, "a", variant.AnyKind)), ErrDuplicateOperation)

	e := New()
	require.NoError(t, e.AddOperation(newSink(t, "a", variant.AnyKind)))
	assert.ErrorIs(t, e.AddOperation(c), ErrDuplicateOperation)
}

func TestCompound_ExposeUnknownOutput(t *testing.T) {
	c := NewCompound("group")
	d := newDoubler(t, "d")
	require.NoError(t, c.AddChild(d))

	_, err := c.ExposeOutput("out", d, "missing")

	assert.ErrorIs(t, err, ErrUnknownSocket)
}

func TestCompound_OptionalExposedInput(t *testing.T) {
	c := NewCompound("group")
	s := newSink(t, "s", variant.AnyKind)
	s.Input("input").SetOptional(true)
	require.NoError(t, c.AddChild(s))

	in, err := c.ExposeInput("input", s.Input("input"))
	require.NoError(t, err)

	assert.True(t, in.IsOptional())
	assert.NoError(t, c.Check(true))
}
