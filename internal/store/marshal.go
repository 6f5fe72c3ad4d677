package store

import (
	"fmt"

	"github.com/roach88/into/internal/variant"
)

// storedValue is the column form of a variant.
type storedValue struct {
	kind   string
	value  string
	digest string
}

// marshalValue converts a variant to canonical JSON TEXT plus its digest.
func marshalValue(v variant.Variant) (storedValue, error) {
	data, err := variant.MarshalCanonical(v)
	if err != nil {
		return storedValue{}, fmt.Errorf("marshal value: %w", err)
	}
	digest, err := variant.Digest(v)
	if err != nil {
		return storedValue{}, err
	}
	return storedValue{
		kind:   variant.KindOf(v).String(),
		value:  string(data),
		digest: digest,
	}, nil
}

// unmarshalValue parses a stored envelope.
func unmarshalValue(data string) (variant.Variant, error) {
	v, err := variant.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
