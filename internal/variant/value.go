package variant

import "fmt"

// Variant is a sealed interface over the payload kinds carried between
// sockets. Only the types in this package implement it.
type Variant interface {
	Kind() Kind
	variant() // sealed
}

// Invalid is the explicit absent value. The zero Variant (nil) means the same.
type Invalid struct{}

func (Invalid) Kind() Kind { return KindInvalid }
func (Invalid) variant()   {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) variant()   {}

// Int8 is a signed 8-bit scalar.
type Int8 int8

func (Int8) Kind() Kind { return KindInt8 }
func (Int8) variant()   {}

// Int16 is a signed 16-bit scalar.
type Int16 int16

func (Int16) Kind() Kind { return KindInt16 }
func (Int16) variant()   {}

// Int32 is a signed 32-bit scalar.
type Int32 int32

func (Int32) Kind() Kind { return KindInt32 }
func (Int32) variant()   {}

// Int64 is a signed 64-bit scalar.
type Int64 int64

func (Int64) Kind() Kind { return KindInt64 }
func (Int64) variant()   {}

// Uint8 is an unsigned 8-bit scalar.
type Uint8 uint8

func (Uint8) Kind() Kind { return KindUint8 }
func (Uint8) variant()   {}

// Uint16 is an unsigned 16-bit scalar.
type Uint16 uint16

func (Uint16) Kind() Kind { return KindUint16 }
func (Uint16) variant()   {}

// Uint32 is an unsigned 32-bit scalar.
type Uint32 uint32

func (Uint32) Kind() Kind { return KindUint32 }
func (Uint32) variant()   {}

// Uint64 is an unsigned 64-bit scalar.
type Uint64 uint64

func (Uint64) Kind() Kind { return KindUint64 }
func (Uint64) variant()   {}

// Float32 is a single precision scalar.
type Float32 float32

func (Float32) Kind() Kind { return KindFloat32 }
func (Float32) variant()   {}

// Float64 is a double precision scalar.
type Float64 float64

func (Float64) Kind() Kind { return KindFloat64 }
func (Float64) variant()   {}

// Complex64 is a complex scalar with float32 parts.
type Complex64 complex64

func (Complex64) Kind() Kind { return KindComplex64 }
func (Complex64) variant()   {}

// Complex128 is a complex scalar with float64 parts.
type Complex128 complex128

func (Complex128) Kind() Kind { return KindComplex128 }
func (Complex128) variant()   {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) variant()   {}

// ControlCode identifies a stream marker.
type ControlCode uint8

const (
	// StartDelay opens a delayed group on an output stream.
	StartDelay ControlCode = iota + 1
	// EndDelay closes the delayed group opened by StartDelay.
	EndDelay
	// Stop tells the receiver that no more objects will follow.
	Stop
)

func (c ControlCode) String() string {
	switch c {
	case StartDelay:
		return "start_delay"
	case EndDelay:
		return "end_delay"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("control(%d)", uint8(c))
	}
}

// Control is an in-band stream marker. Controllers consume markers instead of
// handing them to Process.
type Control struct {
	Code ControlCode
}

func (Control) Kind() Kind { return KindControl }
func (Control) variant()   {}

// IsValid reports whether v carries a value. nil and Invalid{} do not.
func IsValid(v Variant) bool {
	return v != nil && v.Kind() != KindInvalid
}

// KindOf returns the kind of v, treating nil as KindInvalid.
func KindOf(v Variant) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}

// IsControl reports whether v is a marker with the given code.
func IsControl(v Variant, code ControlCode) bool {
	c, ok := v.(Control)
	return ok && c.Code == code
}

// Equal compares two variants by kind and payload. Matrices and images are
// compared element-wise.
func Equal(a, b Variant) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch av := a.(type) {
	case nil, Invalid:
		return true
	case *Matrix:
		return av.Equal(b.(*Matrix))
	case *ColorImage:
		return av.Equal(b.(*ColorImage))
	default:
		return a == b
	}
}
