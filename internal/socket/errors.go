package socket

import (
	"errors"
	"fmt"
)

// ErrInvalidObject is returned when emitting nil or variant.Invalid{}.
var ErrInvalidObject = errors.New("socket: cannot emit an invalid object")

// DeliveryError reports a wire-contract violation between an output and one
// of its receivers. Err is usually a *variant.TypeError.
type DeliveryError struct {
	Output string
	Input  string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s -> %s: %v", e.Output, e.Input, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
