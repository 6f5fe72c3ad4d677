package compiler

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a pipeline definition error tied to a CUE source
// position when one is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	msg := e.Field + ": " + e.Message
	if !e.Pos.IsValid() {
		return msg
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
}

// fromCUE turns the first positioned CUE error into a CompileError. Errors
// without a position pass through.
func fromCUE(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range cueerrors.Errors(err) {
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			return &CompileError{Field: "cue", Message: e.Error(), Pos: pos[0]}
		}
	}
	return err
}
