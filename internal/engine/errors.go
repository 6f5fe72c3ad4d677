package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStopped is returned when topology changes while the engine runs.
	ErrNotStopped = errors.New("engine: topology can only change while stopped")

	// ErrSourceDone is returned by a source's Process when it has nothing
	// more to emit.
	ErrSourceDone = errors.New("engine: source done")

	// ErrSyncMismatch means control markers at the heads of one sync group
	// do not line up.
	ErrSyncMismatch = errors.New("engine: sync markers do not line up")

	// ErrIllegalTransition is returned for a state change the lifecycle
	// does not allow.
	ErrIllegalTransition = errors.New("engine: illegal state transition")

	ErrDuplicateSocket    = errors.New("duplicate socket name")
	ErrDuplicateOperation = errors.New("duplicate operation name")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrUnknownSocket      = errors.New("unknown socket")
	ErrUnknownProperty    = errors.New("unknown property")
	ErrUnknownType        = errors.New("unknown operation type")
	ErrDuplicateType      = errors.New("duplicate operation type")
	ErrNotConnected       = errors.New("required input is not connected")
	ErrPropertyUnset      = errors.New("required property is not set")
	ErrPropertyRange      = errors.New("property out of range")
)

// ConfigError is raised while building or checking a pipeline. It prevents
// the engine from entering Running.
type ConfigError struct {
	// Operation names the offending operation.
	Operation string

	// Field is the socket or property involved, if any.
	Field string

	Err error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configure %s.%s: %v", e.Operation, e.Field, e.Err)
	}
	return fmt.Sprintf("configure %s: %v", e.Operation, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExecutionError is raised from Process or a sync event. It stops the whole
// pipeline.
type ExecutionError struct {
	Operation string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.Operation, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsExecutionError reports whether err is or wraps an *ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// AsExecutionError extracts the *ExecutionError carried by err.
func AsExecutionError(err error) (*ExecutionError, bool) {
	var ee *ExecutionError
	ok := errors.As(err, &ee)
	return ee, ok
}

func configError(op, field string, err error) *ConfigError {
	return &ConfigError{Operation: op, Field: field, Err: err}
}
