package ops

import (
	"fmt"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

var (
	intKinds   = variant.Kinds(variant.KindInt64)
	floatKinds = variant.Kinds(variant.KindFloat64)
	boolKinds  = variant.Kinds(variant.KindBool)
	// dataKinds are accepted by operations that work on scalars and
	// matrices alike.
	dataKinds = variant.NumericKinds | variant.Kinds(variant.KindMatrix)
)

func intProperty(b *engine.BaseOperation, name string) (int, error) {
	n, err := variant.ToInt64(b.Property(name))
	if err != nil {
		return 0, &engine.ConfigError{Operation: b.Name(), Field: name, Err: err}
	}
	return int(n), nil
}

func boolProperty(b *engine.BaseOperation, name string) bool {
	v, ok := b.Property(name).(variant.Bool)
	return ok && bool(v)
}

func rangeError(b *engine.BaseOperation, name string, format string, args ...any) error {
	return &engine.ConfigError{
		Operation: b.Name(),
		Field:     name,
		Err:       fmt.Errorf("%w: "+format, append([]any{engine.ErrPropertyRange}, args...)...),
	}
}
