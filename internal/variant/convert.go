package variant

import (
	"encoding/json"
	"fmt"
)

// FromGo converts a decoded CUE, YAML or JSON value into a Variant.
//
//	nil                  -> Invalid{}
//	bool                 -> Bool
//	Go integer types     -> the matching integer kind (int and uint map to 64 bit)
//	float32/float64      -> Float32/Float64
//	string               -> String
//	json.Number          -> Int64 when integral, else Float64
//	[]any of numbers     -> 1-D Matrix (int64 if all integral, else float64)
//	[]any of []any       -> 2-D Matrix when rows are equal length
//	Variant              -> itself
func FromGo(v any) (Variant, error) {
	switch x := v.(type) {
	case nil:
		return Invalid{}, nil
	case Variant:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int64(x), nil
	case int8:
		return Int8(x), nil
	case int16:
		return Int16(x), nil
	case int32:
		return Int32(x), nil
	case int64:
		return Int64(x), nil
	case uint:
		return Uint64(x), nil
	case uint8:
		return Uint8(x), nil
	case uint16:
		return Uint16(x), nil
	case uint32:
		return Uint32(x), nil
	case uint64:
		return Uint64(x), nil
	case float32:
		return Float32(x), nil
	case float64:
		return Float64(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int64(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", x.String(), err)
		}
		return Float64(f), nil
	case []any:
		return matrixFromList(x)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustFromGo is FromGo that panics on error.
func MustFromGo(v any) Variant {
	out, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return out
}

func matrixFromList(list []any) (Variant, error) {
	if len(list) == 0 {
		return NewMatrix(KindFloat64, []int{0}, nil)
	}
	if _, nested := list[0].([]any); nested {
		rows := len(list)
		var cols int
		var data []float64
		integral := true
		for r, row := range list {
			cells, ok := row.([]any)
			if !ok {
				return nil, fmt.Errorf("matrix row %d is %T, want list", r, row)
			}
			if r == 0 {
				cols = len(cells)
			} else if len(cells) != cols {
				return nil, fmt.Errorf("matrix row %d has %d columns, want %d", r, len(cells), cols)
			}
			for c, cell := range cells {
				f, isInt, err := scalarFloat(cell)
				if err != nil {
					return nil, fmt.Errorf("matrix[%d][%d]: %w", r, c, err)
				}
				integral = integral && isInt
				data = append(data, f)
			}
		}
		return NewMatrix(listElem(integral), []int{rows, cols}, data)
	}
	data := make([]float64, len(list))
	integral := true
	for i, cell := range list {
		f, isInt, err := scalarFloat(cell)
		if err != nil {
			return nil, fmt.Errorf("matrix[%d]: %w", i, err)
		}
		integral = integral && isInt
		data[i] = f
	}
	return NewMatrix(listElem(integral), []int{len(list)}, data)
}

func listElem(integral bool) Kind {
	if integral {
		return KindInt64
	}
	return KindFloat64
}

func scalarFloat(v any) (f float64, integral bool, err error) {
	s, err := FromGo(v)
	if err != nil {
		return 0, false, err
	}
	f, err = ToFloat64(s)
	if err != nil {
		return 0, false, err
	}
	k := s.Kind()
	return f, k.IsInteger() || k == KindBool, nil
}
