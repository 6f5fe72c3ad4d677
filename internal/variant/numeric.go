package variant

import (
	"fmt"
	"math"
)

// intRange returns the representable range of an integer kind.
func intRange(k Kind) (lo, hi float64) {
	switch k {
	case KindInt8:
		return math.MinInt8, math.MaxInt8
	case KindInt16:
		return math.MinInt16, math.MaxInt16
	case KindInt32:
		return math.MinInt32, math.MaxInt32
	case KindInt64:
		return math.MinInt64, math.MaxInt64
	case KindUint8:
		return 0, math.MaxUint8
	case KindUint16:
		return 0, math.MaxUint16
	case KindUint32:
		return 0, math.MaxUint32
	case KindUint64:
		return 0, math.MaxUint64
	}
	return math.Inf(-1), math.Inf(1)
}

// convertFloat truncates and saturates f into the range of k.
func convertFloat(k Kind, f float64) float64 {
	switch {
	case k.IsInteger():
		if math.IsNaN(f) {
			return 0
		}
		lo, hi := intRange(k)
		return math.Max(lo, math.Min(hi, math.Trunc(f)))
	case k == KindFloat32:
		return float64(float32(f))
	default:
		return f
	}
}

// floatToInt64 truncates f and saturates it to the int64 range. The bounds
// are tested against 2^63 because float64(MaxInt64) rounds up to it.
func floatToInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= 0x1p63:
		return math.MaxInt64
	case f < -0x1p63:
		return math.MinInt64
	}
	return int64(f)
}

// floatToUint64 truncates f and saturates it to the uint64 range.
func floatToUint64(f float64) uint64 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 0x1p64:
		return math.MaxUint64
	}
	return uint64(f)
}

// ToFloat64 converts a real scalar to float64. Bool converts to 0 or 1.
func ToFloat64(v Variant) (float64, error) {
	switch x := v.(type) {
	case Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case Int8:
		return float64(x), nil
	case Int16:
		return float64(x), nil
	case Int32:
		return float64(x), nil
	case Int64:
		return float64(x), nil
	case Uint8:
		return float64(x), nil
	case Uint16:
		return float64(x), nil
	case Uint32:
		return float64(x), nil
	case Uint64:
		return float64(x), nil
	case Float32:
		return float64(x), nil
	case Float64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotNumeric, KindOf(v))
	}
}

// ToInt64 converts an integer or bool scalar to int64 exactly; floats are
// truncated. Uint64 values above MaxInt64 are an error.
func ToInt64(v Variant) (int64, error) {
	switch x := v.(type) {
	case Int8:
		return int64(x), nil
	case Int16:
		return int64(x), nil
	case Int32:
		return int64(x), nil
	case Int64:
		return int64(x), nil
	case Uint8:
		return int64(x), nil
	case Uint16:
		return int64(x), nil
	case Uint32:
		return int64(x), nil
	case Uint64:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("uint64 %d overflows int64", uint64(x))
		}
		return int64(x), nil
	case Bool, Float32, Float64:
		f, _ := ToFloat64(v)
		return floatToInt64(f), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotNumeric, KindOf(v))
	}
}

// ToUint64 converts an unsigned scalar to uint64 exactly. Other real
// scalars go through ToInt64; negative values are an error.
func ToUint64(v Variant) (uint64, error) {
	switch x := v.(type) {
	case Uint8:
		return uint64(x), nil
	case Uint16:
		return uint64(x), nil
	case Uint32:
		return uint64(x), nil
	case Uint64:
		return uint64(x), nil
	}
	n, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return uint64(n), nil
}

// ToComplex128 converts any numeric scalar to complex128.
func ToComplex128(v Variant) (complex128, error) {
	switch x := v.(type) {
	case Complex64:
		return complex128(x), nil
	case Complex128:
		return complex128(x), nil
	}
	f, err := ToFloat64(v)
	if err != nil {
		return 0, err
	}
	return complex(f, 0), nil
}

// FromFloat64 builds a scalar of kind k from f, truncating and saturating
// integer kinds. Bool is true for any non-zero f.
func FromFloat64(k Kind, f float64) (Variant, error) {
	f = convertFloat(k, f)
	switch k {
	case KindBool:
		return Bool(f != 0), nil
	case KindInt8:
		return Int8(f), nil
	case KindInt16:
		return Int16(f), nil
	case KindInt32:
		return Int32(f), nil
	case KindInt64:
		return Int64(floatToInt64(f)), nil
	case KindUint8:
		return Uint8(f), nil
	case KindUint16:
		return Uint16(f), nil
	case KindUint32:
		return Uint32(f), nil
	case KindUint64:
		return Uint64(floatToUint64(f)), nil
	case KindFloat32:
		return Float32(f), nil
	case KindFloat64:
		return Float64(f), nil
	case KindComplex64:
		return Complex64(complex(f, 0)), nil
	case KindComplex128:
		return Complex128(complex(f, 0)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, k)
	}
}

// FromInt64 builds a scalar of kind k from n without a float64 round trip.
// Integer kinds saturate to their range.
func FromInt64(k Kind, n int64) (Variant, error) {
	switch k {
	case KindInt8:
		return Int8(clampInt(n, math.MinInt8, math.MaxInt8)), nil
	case KindInt16:
		return Int16(clampInt(n, math.MinInt16, math.MaxInt16)), nil
	case KindInt32:
		return Int32(clampInt(n, math.MinInt32, math.MaxInt32)), nil
	case KindInt64:
		return Int64(n), nil
	case KindUint8:
		return Uint8(clampInt(n, 0, math.MaxUint8)), nil
	case KindUint16:
		return Uint16(clampInt(n, 0, math.MaxUint16)), nil
	case KindUint32:
		return Uint32(clampInt(n, 0, math.MaxUint32)), nil
	case KindUint64:
		return Uint64(max(n, 0)), nil
	}
	return FromFloat64(k, float64(n))
}

func clampInt(n, lo, hi int64) int64 { return max(lo, min(hi, n)) }

// FromComplex128 builds a complex scalar of kind k.
func FromComplex128(k Kind, c complex128) (Variant, error) {
	switch k {
	case KindComplex64:
		return Complex64(c), nil
	case KindComplex128:
		return Complex128(c), nil
	default:
		return FromFloat64(k, real(c))
	}
}

// intWidth returns the bit width of an integer kind.
func intWidth(k Kind) int {
	switch k {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32:
		return 32
	case KindInt64, KindUint64:
		return 64
	}
	return 0
}

func signedOfWidth(w int) Kind {
	switch {
	case w <= 8:
		return KindInt8
	case w <= 16:
		return KindInt16
	case w <= 32:
		return KindInt32
	default:
		return KindInt64
	}
}

// Promote returns the result kind for arithmetic between a and b.
//
//   - complex wins over everything; complex64 only when both sides fit
//   - float wins over integers; float32 only when the integer side is at
//     most 16 bits wide
//   - same signedness: the wider kind
//   - mixed signedness: the narrowest signed kind that holds both ranges,
//     capped at int64 (uint64 operands may saturate)
func Promote(a, b Kind) (Kind, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return KindInvalid, fmt.Errorf("%w: cannot promote %s and %s", ErrNotNumeric, a, b)
	}
	if a == b {
		return a, nil
	}
	switch {
	case a.IsComplex() || b.IsComplex():
		if fitsSingle(a) && fitsSingle(b) {
			return KindComplex64, nil
		}
		return KindComplex128, nil
	case a.IsFloat() || b.IsFloat():
		if fitsSingle(a) && fitsSingle(b) {
			return KindFloat32, nil
		}
		return KindFloat64, nil
	case a.IsUnsigned() == b.IsUnsigned():
		return max(a, b), nil
	}
	signed, unsigned := a, b
	if a.IsUnsigned() {
		signed, unsigned = b, a
	}
	return signedOfWidth(max(intWidth(signed), 2*intWidth(unsigned))), nil
}

// fitsSingle reports whether k converts to float32 without losing the
// integer range that matters for arithmetic.
func fitsSingle(k Kind) bool {
	switch k {
	case KindFloat32, KindComplex64:
		return true
	}
	return k.IsInteger() && intWidth(k) <= 16
}

// Coerce returns v unchanged when set accepts its kind. Otherwise a real
// numeric scalar is converted to the widest accepted kind of its own family,
// integers may widen to floats, and integral floats may narrow to integers
// when they fit. Anything else is a *TypeError.
func Coerce(v Variant, set KindSet) (Variant, error) {
	k := KindOf(v)
	if set.Accepts(k) {
		return v, nil
	}
	fail := &TypeError{Expected: set, Got: k}
	if !k.IsInteger() && !k.IsFloat() {
		return nil, fail
	}
	f, err := ToFloat64(v)
	if err != nil {
		return nil, err
	}
	widest := func(in func(Kind) bool) Kind {
		best := KindInvalid
		for _, c := range set.List() {
			if in(c) && (best == KindInvalid || kindBits(c) >= kindBits(best)) {
				best = c
			}
		}
		return best
	}
	target := KindInvalid
	if k.IsInteger() {
		if target = widest(Kind.IsInteger); target == KindInvalid {
			target = widest(Kind.IsFloat)
		}
	} else {
		target = widest(Kind.IsFloat)
		if target == KindInvalid && f == math.Trunc(f) {
			target = widest(Kind.IsInteger)
		}
	}
	if target == KindInvalid {
		return nil, fail
	}
	if target.IsInteger() {
		if lo, hi := intRange(target); f < lo || f > hi {
			return nil, fail
		}
	}
	return FromFloat64(target, f)
}

func kindBits(k Kind) int {
	switch k {
	case KindFloat32:
		return 32
	case KindFloat64:
		return 64
	default:
		return intWidth(k)
	}
}
