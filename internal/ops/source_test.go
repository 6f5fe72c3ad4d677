package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

func TestValueSource_Repeat(t *testing.T) {
	src := source(t, "src", variant.String("tick"))
	require.NoError(t, src.SetProperty("repeat", variant.Int64(3)))
	sink := collector(t, "sink")

	e := engine.New()
	add(t, e, src, sink)
	connect(t, e, "src", "output", "sink", "input")
	run(t, e)

	assert.Equal(t, []variant.Variant{
		variant.String("tick"), variant.String("tick"), variant.String("tick"),
	}, sink.Values())
	assert.True(t, sink.Finished())
}

func TestValueSource_MatrixElements(t *testing.T) {
	src, err := NewValueSource("src")
	require.NoError(t, err)
	require.NoError(t, src.SetProperty("values", variant.MustMatrix(variant.KindInt32, []int{3}, []float64{4, 5, 6})))
	require.NoError(t, src.SetProperty("repeat", variant.Int64(2)))
	sink := collector(t, "sink")

	e := engine.New()
	add(t, e, src, sink)
	connect(t, e, "src", "output", "sink", "input")
	run(t, e)

	assert.Equal(t, []variant.Variant{
		variant.Int32(4), variant.Int32(5), variant.Int32(6),
		variant.Int32(4), variant.Int32(5), variant.Int32(6),
	}, sink.Values())

	// A second run starts the sequence over.
	run(t, e)
	assert.Len(t, sink.Values(), 6)
}

func TestValueSource_Check(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]variant.Variant
	}{
		{"neither value nor values", nil},
		{"both value and values", map[string]variant.Variant{
			"value":  variant.Int64(1),
			"values": variant.MustMatrix(variant.KindInt64, []int{1}, []float64{1}),
		}},
		{"negative repeat", map[string]variant.Variant{
			"value":  variant.Int64(1),
			"repeat": variant.Int64(-1),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewValueSource("src")
			require.NoError(t, err)
			for k, v := range tt.props {
				require.NoError(t, src.SetProperty(k, v))
			}
			err = src.Check(true)
			require.Error(t, err)
			assert.True(t, engine.IsConfigError(err))
			assert.ErrorIs(t, err, engine.ErrPropertyRange)
		})
	}
}

func TestCollector_Capacity(t *testing.T) {
	c := collector(t, "sink")
	require.NoError(t, c.SetProperty("capacity", variant.Int64(2)))
	c.Input("input").SetOptional(true)
	require.NoError(t, c.Check(true))
	assert.Equal(t, 2, c.Input("input").Capacity())

	require.NoError(t, c.SetProperty("capacity", variant.Int64(-3)))
	assert.ErrorIs(t, c.Check(true), engine.ErrPropertyRange)
}
