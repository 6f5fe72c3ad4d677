package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// envelope is the tagged JSON form of a Variant.
//
//	{"kind":"int32","value":5}
//	{"kind":"matrix","elem":"uint8","dims":[2,2],"data":[1,2,3,4]}
//	{"kind":"color_image","width":1,"height":1,"channels":3,"pix":"AAAA"}
//	{"kind":"complex128","value":[1.5,-2]}
//	{"kind":"control","value":"end_delay"}
type envelope struct {
	Kind     string          `json:"kind"`
	Value    json.RawMessage `json:"value,omitempty"`
	Elem     string          `json:"elem,omitempty"`
	Dims     []int           `json:"dims,omitempty"`
	Data     []float64       `json:"data,omitempty"`
	Width    int             `json:"width,omitempty"`
	Height   int             `json:"height,omitempty"`
	Channels int             `json:"channels,omitempty"`
	Pix      []byte          `json:"pix,omitempty"`
}

// Marshal encodes v as a tagged JSON envelope. nil encodes as the invalid kind.
func Marshal(v Variant) ([]byte, error) {
	env := envelope{Kind: KindOf(v).String()}
	var payload any
	switch x := v.(type) {
	case nil, Invalid:
	case Bool, Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, String:
		payload = x
	case Float32:
		if err := checkFinite(float64(x)); err != nil {
			return nil, err
		}
		payload = x
	case Float64:
		if err := checkFinite(float64(x)); err != nil {
			return nil, err
		}
		payload = x
	case Complex64:
		payload = []float64{float64(real(x)), float64(imag(x))}
	case Complex128:
		payload = []float64{real(x), imag(x)}
	case Control:
		payload = x.Code.String()
	case *Matrix:
		env.Elem = x.elem.String()
		env.Dims = x.dims
		env.Data = x.data
	case *ColorImage:
		env.Width, env.Height, env.Channels, env.Pix = x.width, x.height, x.channels, x.pix
	default:
		return nil, fmt.Errorf("unknown variant type: %T", v)
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Kind, err)
		}
		env.Value = raw
	}
	return json.Marshal(env)
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite float %v cannot be encoded", f)
	}
	return nil
}

// Unmarshal decodes a tagged JSON envelope produced by Marshal.
func Unmarshal(data []byte) (Variant, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode variant envelope: %w", err)
	}
	kind, err := ParseKind(env.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindInvalid:
		return Invalid{}, nil
	case KindMatrix:
		elem, err := ParseKind(env.Elem)
		if err != nil {
			return nil, fmt.Errorf("matrix elem: %w", err)
		}
		return NewMatrix(elem, env.Dims, env.Data)
	case KindColorImage:
		return NewColorImage(env.Width, env.Height, env.Channels, env.Pix)
	case KindString:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, fmt.Errorf("string value: %w", err)
		}
		return String(s), nil
	case KindBool:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return nil, fmt.Errorf("bool value: %w", err)
		}
		return Bool(b), nil
	case KindControl:
		var name string
		if err := json.Unmarshal(env.Value, &name); err != nil {
			return nil, fmt.Errorf("control value: %w", err)
		}
		for _, code := range []ControlCode{StartDelay, EndDelay, Stop} {
			if code.String() == name {
				return Control{Code: code}, nil
			}
		}
		return nil, fmt.Errorf("unknown control code %q", name)
	case KindComplex64, KindComplex128:
		var parts [2]float64
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, fmt.Errorf("complex value: %w", err)
		}
		return FromComplex128(kind, complex(parts[0], parts[1]))
	case KindUint64:
		var u uint64
		if err := json.Unmarshal(env.Value, &u); err != nil {
			return nil, fmt.Errorf("uint64 value: %w", err)
		}
		return Uint64(u), nil
	case KindInt64:
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return nil, fmt.Errorf("int64 value: %w", err)
		}
		return Int64(i), nil
	default:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return nil, fmt.Errorf("%s value: %w", kind, err)
		}
		return FromFloat64(kind, f)
	}
}
