package ops

import (
	"github.com/roach88/into/internal/engine"
)

// Type names used in pipeline definitions.
const (
	TypeValueSource    = "value_source"
	TypeThreshold      = "threshold"
	TypeArithmetic     = "arithmetic"
	TypeMatrixSplitter = "matrix_splitter"
	TypeHistogram      = "histogram"
	TypeCollector      = "collector"
	TypeDigitalOutput  = "digital_output"
	TypeDigitalInput   = "digital_input"
)

// Register adds the built-in operations to reg. env backs the digital
// operations and may be nil when no board is available; those operations
// then fail Check.
func Register(reg *engine.Registry, env *Env) error {
	factories := []struct {
		typeName string
		factory  engine.Factory
	}{
		{TypeValueSource, func(name string) (engine.Operation, error) { return NewValueSource(name) }},
		{TypeThreshold, func(name string) (engine.Operation, error) { return NewThresholdOperation(name) }},
		{TypeArithmetic, func(name string) (engine.Operation, error) { return NewArithmeticOperation(name) }},
		{TypeMatrixSplitter, func(name string) (engine.Operation, error) { return NewMatrixSplitter(name) }},
		{TypeHistogram, func(name string) (engine.Operation, error) { return NewHistogramOperation(name) }},
		{TypeCollector, func(name string) (engine.Operation, error) { return NewCollector(name) }},
		{TypeDigitalOutput, func(name string) (engine.Operation, error) { return NewDigitalOutput(name, env) }},
		{TypeDigitalInput, func(name string) (engine.Operation, error) { return NewDigitalInput(name, env) }},
	}
	for _, f := range factories {
		if err := reg.Register(f.typeName, f.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in operations.
func NewRegistry(env *Env) *engine.Registry {
	reg := engine.NewRegistry()
	// Registering into an empty registry cannot collide.
	_ = Register(reg, env)
	return reg
}
