package ops

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// ErrDivisionByZero is returned by the divide function for a zero divisor.
var ErrDivisionByZero = errors.New("division by zero")

// ArithmeticFunction selects the operator of an ArithmeticOperation.
type ArithmeticFunction string

const (
	Add      ArithmeticFunction = "add"
	Subtract ArithmeticFunction = "subtract"
	Multiply ArithmeticFunction = "multiply"
	Divide   ArithmeticFunction = "divide"
)

var arithmeticFunctions = []ArithmeticFunction{Add, Subtract, Multiply, Divide}

// ArithmeticOperation combines input0 and input1 element-wise. Scalars are
// promoted to a common kind; a scalar paired with a matrix is broadcast.
type ArithmeticOperation struct {
	engine.BaseOperation
	function ArithmeticFunction
}

// NewArithmeticOperation creates the operation with two inputs in group 0.
func NewArithmeticOperation(name string) (*ArithmeticOperation, error) {
	a := &ArithmeticOperation{BaseOperation: engine.NewBaseOperation(name)}
	for _, in := range []string{"input0", "input1"} {
		if _, err := a.AddInput(in, dataKinds); err != nil {
			return nil, err
		}
	}
	if _, err := a.AddOutput("output"); err != nil {
		return nil, err
	}
	a.DeclareProperty(engine.PropertyDecl{
		Name:    "function",
		Accepts: variant.Kinds(variant.KindString),
		Default: variant.String(Add),
		Doc:     "add, subtract, multiply or divide",
	})
	return a, nil
}

func (a *ArithmeticOperation) Check(reset bool) error {
	if err := a.BaseOperation.Check(reset); err != nil {
		return err
	}
	s, _ := a.Property("function").(variant.String)
	fn := ArithmeticFunction(s)
	if !slices.Contains(arithmeticFunctions, fn) {
		return rangeError(&a.BaseOperation, "function", "unknown function %q", string(s))
	}
	a.function = fn
	return nil
}

func (a *ArithmeticOperation) Process(_ context.Context, r *engine.Round) error {
	v, err := Calculate(a.function, r.Read("input0"), r.Read("input1"))
	if err != nil {
		return err
	}
	return r.Emit("output", v)
}

// Calculate applies fn to two scalars, two matrices of equal dimensions, or
// a matrix and a scalar.
func Calculate(fn ArithmeticFunction, x, y variant.Variant) (variant.Variant, error) {
	mx, xIsMatrix := x.(*variant.Matrix)
	my, yIsMatrix := y.(*variant.Matrix)
	switch {
	case xIsMatrix && yIsMatrix:
		if !slices.Equal(mx.Dims(), my.Dims()) {
			return nil, fmt.Errorf("%s: dimension mismatch %v and %v", fn, mx.Dims(), my.Dims())
		}
		return matrixOp(fn, mx, my.Elem(), func(i int) float64 { return my.At(i) }, false)
	case xIsMatrix:
		f, k, err := broadcastScalar(y)
		if err != nil {
			return nil, err
		}
		return matrixOp(fn, mx, k, func(int) float64 { return f }, false)
	case yIsMatrix:
		f, k, err := broadcastScalar(x)
		if err != nil {
			return nil, err
		}
		return matrixOp(fn, my, k, func(int) float64 { return f }, true)
	}
	return scalarOp(fn, x, y)
}

func broadcastScalar(v variant.Variant) (float64, variant.Kind, error) {
	k := variant.KindOf(v)
	if k.IsComplex() {
		return 0, k, fmt.Errorf("complex %s cannot be broadcast over a matrix", k)
	}
	f, err := variant.ToFloat64(v)
	return f, k, err
}

// matrixOp computes m op other(i) for every element. swapped puts the
// matrix on the right-hand side.
func matrixOp(fn ArithmeticFunction, m *variant.Matrix, otherKind variant.Kind, other func(int) float64, swapped bool) (variant.Variant, error) {
	elem, err := variant.Promote(m.Elem(), otherKind)
	if err != nil {
		return nil, err
	}
	out, err := variant.Zeros(elem, m.Dims()...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.Len(); i++ {
		lhs, rhs := m.At(i), other(i)
		if swapped {
			lhs, rhs = rhs, lhs
		}
		f, err := floatOp(fn, lhs, rhs)
		if err != nil {
			return nil, err
		}
		out.Set(i, f)
	}
	return out, nil
}

func scalarOp(fn ArithmeticFunction, x, y variant.Variant) (variant.Variant, error) {
	k, err := variant.Promote(variant.KindOf(x), variant.KindOf(y))
	if err != nil {
		return nil, err
	}
	switch {
	case k.IsComplex():
		cx, _ := variant.ToComplex128(x)
		cy, _ := variant.ToComplex128(y)
		c, err := complexOp(fn, cx, cy)
		if err != nil {
			return nil, err
		}
		return variant.FromComplex128(k, c)
	case k == variant.KindUint64:
		ux, err := variant.ToUint64(x)
		if err != nil {
			return nil, err
		}
		uy, err := variant.ToUint64(y)
		if err != nil {
			return nil, err
		}
		n, err := uintOp(fn, ux, uy)
		if err != nil {
			return nil, err
		}
		return variant.Uint64(n), nil
	case k.IsInteger():
		ix, err := variant.ToInt64(x)
		if err != nil {
			return nil, err
		}
		iy, err := variant.ToInt64(y)
		if err != nil {
			return nil, err
		}
		n, err := intOp(fn, ix, iy)
		if err != nil {
			return nil, err
		}
		return variant.FromInt64(k, n)
	default:
		fx, _ := variant.ToFloat64(x)
		fy, _ := variant.ToFloat64(y)
		f, err := floatOp(fn, fx, fy)
		if err != nil {
			return nil, err
		}
		return variant.FromFloat64(k, f)
	}
}

func floatOp(fn ArithmeticFunction, x, y float64) (float64, error) {
	switch fn {
	case Add:
		return x + y, nil
	case Subtract:
		return x - y, nil
	case Multiply:
		return x * y, nil
	case Divide:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return x / y, nil
	}
	return 0, fmt.Errorf("unknown function %q", string(fn))
}

// intOp computes x fn y, saturating at the int64 bounds on overflow.
func intOp(fn ArithmeticFunction, x, y int64) (int64, error) {
	switch fn {
	case Add:
		n := x + y
		if (x > 0 && y > 0 && n < 0) || (x < 0 && y < 0 && n >= 0) {
			return saturated(x > 0), nil
		}
		return n, nil
	case Subtract:
		n := x - y
		if (x >= 0 && y < 0 && n < 0) || (x < 0 && y > 0 && n >= 0) {
			return saturated(x >= 0), nil
		}
		return n, nil
	case Multiply:
		if x == 0 || y == 0 {
			return 0, nil
		}
		n := x * y
		if n/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return saturated((x < 0) == (y < 0)), nil
		}
		return n, nil
	case Divide:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		if x == math.MinInt64 && y == -1 {
			return math.MaxInt64, nil
		}
		return x / y, nil
	}
	return 0, fmt.Errorf("unknown function %q", string(fn))
}

func saturated(positive bool) int64 {
	if positive {
		return math.MaxInt64
	}
	return math.MinInt64
}

// uintOp computes x fn y, clamping to [0, MaxUint64].
func uintOp(fn ArithmeticFunction, x, y uint64) (uint64, error) {
	switch fn {
	case Add:
		n, carry := bits.Add64(x, y, 0)
		if carry != 0 {
			return math.MaxUint64, nil
		}
		return n, nil
	case Subtract:
		n, borrow := bits.Sub64(x, y, 0)
		if borrow != 0 {
			return 0, nil
		}
		return n, nil
	case Multiply:
		hi, lo := bits.Mul64(x, y)
		if hi != 0 {
			return math.MaxUint64, nil
		}
		return lo, nil
	case Divide:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return x / y, nil
	}
	return 0, fmt.Errorf("unknown function %q", string(fn))
}

func complexOp(fn ArithmeticFunction, x, y complex128) (complex128, error) {
	switch fn {
	case Add:
		return x + y, nil
	case Subtract:
		return x - y, nil
	case Multiply:
		return x * y, nil
	case Divide:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return x / y, nil
	}
	return 0, fmt.Errorf("unknown function %q", string(fn))
}
