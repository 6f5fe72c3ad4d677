package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/into/internal/engine"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownType       = "E201" // operation type not registered
	ErrUnknownOperation  = "E202" // connection names an undeclared operation
	ErrUnknownOutput     = "E203" // connection names a missing output socket
	ErrUnknownInput      = "E204" // connection names a missing input socket
	ErrInputFedTwice     = "E205" // two connections feed one input
	ErrUnknownProperty   = "E206" // property not declared by the type
	ErrInvalidProperty   = "E207" // property value rejected by the type
	ErrOperationCreation = "E208" // factory failed
)

// ValidationError represents a structural problem in a pipeline.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate instantiates every operation of p from reg and checks types,
// properties and connection endpoints. It returns all problems found
// rather than stopping at the first. Operation Check is not run; that
// happens when the engine executes.
func Validate(p *Pipeline, reg *engine.Registry) []ValidationError {
	var errs []ValidationError
	instances := make(map[string]engine.Operation, len(p.Operations))

	for _, spec := range p.Operations {
		field := "operations." + spec.Name
		op, err := reg.Create(spec.Type, spec.Name)
		if err != nil {
			code := ErrOperationCreation
			if errors.Is(err, engine.ErrUnknownType) {
				code = ErrUnknownType
			}
			errs = append(errs, ValidationError{
				Field: field + ".type", Message: err.Error(), Code: code, Line: spec.Pos.Line(),
			})
			continue
		}
		instances[spec.Name] = op
		for _, name := range sortedKeys(spec.Properties) {
			if err := op.Base().SetProperty(name, spec.Properties[name]); err != nil {
				code := ErrInvalidProperty
				if errors.Is(err, engine.ErrUnknownProperty) {
					code = ErrUnknownProperty
				}
				errs = append(errs, ValidationError{
					Field: field + ".properties." + name, Message: err.Error(), Code: code, Line: spec.Pos.Line(),
				})
			}
		}
	}

	fed := make(map[Endpoint]Connection)
	for i, c := range p.Connections {
		field := fmt.Sprintf("connections[%d]", i)
		line := c.Pos.Line()
		declared := true
		for _, ep := range []Endpoint{c.From, c.To} {
			if _, ok := p.Operation(ep.Operation); !ok {
				errs = append(errs, ValidationError{
					Field: field, Message: fmt.Sprintf("unknown operation %q", ep.Operation),
					Code: ErrUnknownOperation, Line: line,
				})
				declared = false
			}
		}
		if !declared {
			continue
		}
		if src, ok := instances[c.From.Operation]; ok && src.Base().Output(c.From.Socket) == nil {
			errs = append(errs, ValidationError{
				Field: field, Message: fmt.Sprintf("%s has no output %q", c.From.Operation, c.From.Socket),
				Code: ErrUnknownOutput, Line: line,
			})
		}
		if dst, ok := instances[c.To.Operation]; ok && dst.Base().Input(c.To.Socket) == nil {
			errs = append(errs, ValidationError{
				Field: field, Message: fmt.Sprintf("%s has no input %q", c.To.Operation, c.To.Socket),
				Code: ErrUnknownInput, Line: line,
			})
		}
		if prev, ok := fed[c.To]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s is already fed by %s", c.To, prev.From),
				Code:    ErrInputFedTwice,
				Line:    line,
			})
		}
		fed[c.To] = c
	}
	return errs
}
