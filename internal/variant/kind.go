package variant

import (
	"fmt"
	"math/bits"
	"strings"
)

// Kind is the type tag of a Variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindComplex64
	KindComplex128
	KindString
	KindMatrix
	KindColorImage
	KindControl

	kindCount
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindBool:       "bool",
	KindInt8:       "int8",
	KindInt16:      "int16",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindUint8:      "uint8",
	KindUint16:     "uint16",
	KindUint32:     "uint32",
	KindUint64:     "uint64",
	KindFloat32:    "float32",
	KindFloat64:    "float64",
	KindComplex64:  "complex64",
	KindComplex128: "complex128",
	KindString:     "string",
	KindMatrix:     "matrix",
	KindColorImage: "color_image",
	KindControl:    "control",
}

// String returns the lowercase kind name used in JSON envelopes and CUE
// pipeline definitions.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", name)
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool {
	return k.IsSigned() || k.IsUnsigned()
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsComplex reports whether k is a complex kind.
func (k Kind) IsComplex() bool {
	return k == KindComplex64 || k == KindComplex128
}

// IsNumeric reports whether k is an integer, float or complex scalar kind.
// Bool is not numeric.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat() || k.IsComplex()
}

// KindSet is a set of kinds an input socket accepts.
// Control markers are accepted by every set, including the empty one.
type KindSet uint32

const (
	// NumericKinds contains every integer, float and complex kind.
	NumericKinds = KindSet(1<<KindInt8 | 1<<KindInt16 | 1<<KindInt32 | 1<<KindInt64 |
		1<<KindUint8 | 1<<KindUint16 | 1<<KindUint32 | 1<<KindUint64 |
		1<<KindFloat32 | 1<<KindFloat64 | 1<<KindComplex64 | 1<<KindComplex128)

	// ScalarKinds is NumericKinds plus bool.
	ScalarKinds = NumericKinds | 1<<KindBool

	// AnyKind accepts every valid kind.
	AnyKind = KindSet(1<<kindCount-1) &^ 1
)

// Kinds builds a KindSet from individual kinds.
func Kinds(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Accepts reports whether k belongs to the set. KindControl is always accepted.
func (s KindSet) Accepts(k Kind) bool {
	if k == KindControl {
		return true
	}
	if k == KindInvalid || k >= kindCount {
		return false
	}
	return s&(1<<k) != 0
}

// Union returns the kinds in s or o.
func (s KindSet) Union(o KindSet) KindSet {
	return s | o
}

// Intersects reports whether s and o share a data kind.
func (s KindSet) Intersects(o KindSet) bool {
	return s&o&^(1<<KindControl) != 0
}

// List returns the member kinds in declaration order.
func (s KindSet) List() []Kind {
	kinds := make([]Kind, 0, s.Len())
	for k := Kind(1); k < kindCount; k++ {
		if s&(1<<k) != 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Len returns the number of kinds in the set.
func (s KindSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// String lists the member kinds, e.g. "{int32,float64}".
func (s KindSet) String() string {
	if s == AnyKind {
		return "{any}"
	}
	names := make([]string, 0, s.Len())
	for _, k := range s.List() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
