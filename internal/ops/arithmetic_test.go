package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

func TestCalculate_Scalars(t *testing.T) {
	tests := []struct {
		name string
		fn   ArithmeticFunction
		x, y variant.Variant
		want variant.Variant
	}{
		{"int32 divide truncates", Divide, variant.Int32(7), variant.Int32(2), variant.Int32(3)},
		{"mixed signedness widens", Add, variant.Uint8(3), variant.Int8(-5), variant.Int16(-2)},
		{"int8 saturates", Add, variant.Int8(100), variant.Int8(100), variant.Int8(127)},
		{"int64 add saturates", Add, variant.Int64(math.MaxInt64), variant.Int64(1), variant.Int64(math.MaxInt64)},
		{"int64 subtract saturates", Subtract, variant.Int64(math.MinInt64), variant.Int64(1), variant.Int64(math.MinInt64)},
		{"int64 multiply saturates", Multiply, variant.Int64(math.MaxInt64), variant.Int64(-2), variant.Int64(math.MinInt64)},
		{"int64 divide saturates", Divide, variant.Int64(math.MinInt64), variant.Int64(-1), variant.Int64(math.MaxInt64)},
		{"int64 stays exact", Add, variant.Int64(1<<53 + 1), variant.Int64(0), variant.Int64(1<<53 + 1)},
		{"uint64 add saturates", Add, variant.Uint64(math.MaxUint64), variant.Uint64(1), variant.Uint64(math.MaxUint64)},
		{"uint64 subtract clamps at zero", Subtract, variant.Uint64(3), variant.Uint64(10), variant.Uint64(0)},
		{"uint64 stays exact", Multiply, variant.Uint64(1<<53 + 1), variant.Uint64(1), variant.Uint64(1<<53 + 1)},
		{"float32 wins over int16", Multiply, variant.Float32(1.5), variant.Int16(2), variant.Float32(3)},
		{"float64 wins over int32", Subtract, variant.Int32(1), variant.Float64(0.25), variant.Float64(0.75)},
		{"uint64", Subtract, variant.Uint64(10), variant.Uint64(3), variant.Uint64(7)},
		{"complex", Add, variant.Complex128(1 + 2i), variant.Float64(1), variant.Complex128(2 + 2i)},
		{"complex divide", Divide, variant.Complex64(4 + 2i), variant.Int8(2), variant.Complex64(2 + 1i)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.fn, tt.x, tt.y)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculate_DivisionByZero(t *testing.T) {
	for _, y := range []variant.Variant{variant.Int64(0), variant.Float64(0), variant.Complex128(0)} {
		_, err := Calculate(Divide, variant.Int64(1), y)
		assert.ErrorIs(t, err, ErrDivisionByZero, "divisor %v", y)
	}
	m := variant.MustMatrix(variant.KindFloat64, []int{2}, []float64{1, 0})
	_, err := Calculate(Divide, variant.Float64(1), m)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestCalculate_Matrices(t *testing.T) {
	a := variant.MustMatrix(variant.KindUint8, []int{2}, []float64{1, 2})
	b := variant.MustMatrix(variant.KindUint8, []int{2}, []float64{10, 20})

	got, err := Calculate(Add, a, b)
	require.NoError(t, err)
	assert.True(t, variant.Equal(variant.MustMatrix(variant.KindUint8, []int{2}, []float64{11, 22}), got))

	got, err = Calculate(Add, a, variant.Int64(3))
	require.NoError(t, err)
	assert.True(t, variant.Equal(variant.MustMatrix(variant.KindInt64, []int{2}, []float64{4, 5}), got))

	got, err = Calculate(Subtract, variant.Float64(10), variant.MustMatrix(variant.KindFloat64, []int{2}, []float64{1, 2}))
	require.NoError(t, err)
	assert.True(t, variant.Equal(variant.MustMatrix(variant.KindFloat64, []int{2}, []float64{9, 8}), got))

	_, err = Calculate(Add, a, variant.MustMatrix(variant.KindUint8, []int{1, 2}, []float64{1, 2}))
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = Calculate(Add, a, variant.Complex64(1))
	assert.Error(t, err)
}

func arithmeticPipeline(t *testing.T, fn string, x, y variant.Variant) (*engine.Engine, *Collector) {
	t.Helper()
	op, err := NewArithmeticOperation("calc")
	require.NoError(t, err)
	require.NoError(t, op.SetProperty("function", variant.String(fn)))
	sink := collector(t, "sink")

	e := engine.New()
	add(t, e, source(t, "x", x), source(t, "y", y), op, sink)
	connect(t, e, "x", "output", "calc", "input0")
	connect(t, e, "y", "output", "calc", "input1")
	connect(t, e, "calc", "output", "sink", "input")
	return e, sink
}

func TestArithmetic_Pipeline(t *testing.T) {
	e, sink := arithmeticPipeline(t, "multiply", variant.Int16(6), variant.Int16(7))
	run(t, e)
	assert.Equal(t, []variant.Variant{variant.Int16(42)}, sink.Values())
}

func TestArithmetic_DivisionByZeroStopsPipeline(t *testing.T) {
	e, sink := arithmeticPipeline(t, "divide", variant.Int64(1), variant.Int64(0))

	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.NoError(t, e.Wait(ctx, engine.Stopped))

	err := e.Err()
	require.Error(t, err)
	assert.True(t, engine.IsExecutionError(err))
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.Empty(t, sink.Values())
}

func TestArithmetic_UnknownFunction(t *testing.T) {
	e, _ := arithmeticPipeline(t, "modulo", variant.Int64(1), variant.Int64(2))
	err := e.Execute(waitCtx(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrPropertyRange)
	assert.Equal(t, engine.Stopped, e.State())
}
