package variant

import (
	"errors"
	"fmt"
)

// TypeError reports a kind that a receiver cannot handle.
// It is the wire-contract violation between two connected sockets.
type TypeError struct {
	Expected KindSet
	Got      Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("unknown type: got %s, expected one of %s", e.Got, e.Expected)
}

// IsTypeError returns true if err is or wraps a *TypeError.
func IsTypeError(err error) bool {
	var te *TypeError
	return errors.As(err, &te)
}

// ErrNotNumeric is returned by numeric conversions on non-numeric kinds.
var ErrNotNumeric = errors.New("variant: not a numeric value")
