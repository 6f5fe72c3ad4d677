package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/variant"
)

func TestBaseOperation_DuplicateSocketNames(t *testing.T) {
	b := NewBaseOperation("op")
	_, err := b.AddInput("image", variant.AnyKind)
	require.NoError(t, err)

	_, err = b.AddInput("image", variant.AnyKind)
	assert.ErrorIs(t, err, ErrDuplicateSocket)

	_, err = b.AddOutput("image")
	assert.ErrorIs(t, err, ErrDuplicateSocket, "inputs and outputs share one namespace")

	assert.Len(t, b.Inputs(), 1)
	assert.Empty(t, b.Outputs())
}

func TestBaseOperation_Properties(t *testing.T) {
	b := NewBaseOperation("op")
	b.DeclareProperty(PropertyDecl{Name: "threshold", Accepts: variant.Kinds(variant.KindFloat64)})
	b.DeclareProperty(PropertyDecl{Name: "inverse", Accepts: variant.Kinds(variant.KindBool), Default: variant.Bool(false)})

	assert.Equal(t, variant.Invalid{}, b.Property("threshold"))
	assert.Equal(t, variant.Bool(false), b.Property("inverse"))
	assert.Equal(t, variant.Invalid{}, b.Property("missing"))

	require.NoError(t, b.SetProperty("threshold", variant.Int64(128)))
	assert.Equal(t, variant.Float64(128), b.Property("threshold"), "integers widen to the declared float")

	err := b.SetProperty("inverse", variant.String("yes"))
	assert.True(t, variant.IsTypeError(err))
	assert.True(t, IsConfigError(err))

	assert.ErrorIs(t, b.SetProperty("missing", variant.Bool(true)), ErrUnknownProperty)

	names := []string{}
	for _, d := range b.Properties() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"threshold", "inverse"}, names)
}

func TestBaseOperation_ClearProperty(t *testing.T) {
	b := NewBaseOperation("op")
	b.DeclareProperty(PropertyDecl{Name: "level", Accepts: variant.NumericKinds})
	require.NoError(t, b.SetProperty("level", variant.Int32(3)))

	require.NoError(t, b.SetProperty("level", variant.Invalid{}))

	_, err := b.RequireProperty("level")
	assert.ErrorIs(t, err, ErrPropertyUnset)
}

func TestBaseOperation_CheckRequiresConnections(t *testing.T) {
	b := NewBaseOperation("op")
	in, err := b.AddInput("required", variant.AnyKind)
	require.NoError(t, err)
	opt, err := b.AddInput("optional", variant.AnyKind)
	require.NoError(t, err)
	opt.SetOptional(true)

	err = b.Check(true)
	assert.ErrorIs(t, err, ErrNotConnected)

	src := NewBaseOperation("src")
	_, err = src.AddOutput("out")
	require.NoError(t, err)
	in.ConnectOutput(src.Output("out"))
	assert.NoError(t, b.Check(true))
}

func TestBaseOperation_ConnectOutput(t *testing.T) {
	src := newSliceSource(t, "src")
	dst := newSink(t, "dst", variant.AnyKind)

	require.NoError(t, src.ConnectOutput("output", dst, "input"))
	assert.Same(t, src.Output("output"), dst.Input("input").ConnectedOutput())

	assert.ErrorIs(t, src.ConnectOutput("nope", dst, "input"), ErrUnknownSocket)
	assert.ErrorIs(t, src.ConnectOutput("output", dst, "nope"), ErrUnknownSocket)
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Operation: "thr", Field: "absoluteThreshold", Err: ErrPropertyUnset}
	assert.Equal(t, "configure thr.absoluteThreshold: required property is not set", err.Error())

	err = &ConfigError{Operation: "thr", Err: ErrDuplicateOperation}
	assert.Equal(t, "configure thr: duplicate operation name", err.Error())
}
