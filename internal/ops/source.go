package ops

import (
	"context"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// ValueSource emits a sequence one object per round and finishes when the
// sequence is exhausted. The sequence is either the single "value" or the
// elements of the "values" matrix; "repeat" is the number of passes, 0
// meaning forever.
type ValueSource struct {
	engine.BaseOperation
	pass  int
	index int
}

// NewValueSource creates a ValueSource with its "output" socket.
func NewValueSource(name string) (*ValueSource, error) {
	s := &ValueSource{BaseOperation: engine.NewBaseOperation(name)}
	if _, err := s.AddOutput("output"); err != nil {
		return nil, err
	}
	s.DeclareProperty(engine.PropertyDecl{Name: "value", Accepts: variant.AnyKind,
		Doc: "single object emitted once per pass"})
	s.DeclareProperty(engine.PropertyDecl{Name: "values", Accepts: variant.Kinds(variant.KindMatrix),
		Doc: "matrix whose elements are emitted one per round"})
	s.DeclareProperty(engine.PropertyDecl{Name: "repeat", Accepts: intKinds, Default: variant.Int64(1),
		Doc: "number of passes; 0 repeats forever"})
	return s, nil
}

func (s *ValueSource) Check(reset bool) error {
	if err := s.BaseOperation.Check(reset); err != nil {
		return err
	}
	hasValue := variant.IsValid(s.Property("value"))
	hasValues := variant.IsValid(s.Property("values"))
	if hasValue == hasValues {
		return rangeError(&s.BaseOperation, "value", "exactly one of value and values must be set")
	}
	repeat, err := intProperty(&s.BaseOperation, "repeat")
	if err != nil {
		return err
	}
	if repeat < 0 {
		return rangeError(&s.BaseOperation, "repeat", "%d is negative", repeat)
	}
	if reset {
		s.pass, s.index = 0, 0
	}
	return nil
}

func (s *ValueSource) length() int {
	if m, ok := s.Property("values").(*variant.Matrix); ok {
		return m.Len()
	}
	return 1
}

func (s *ValueSource) at(i int) variant.Variant {
	if m, ok := s.Property("values").(*variant.Matrix); ok {
		return m.ElementAt(i)
	}
	return s.Property("value")
}

func (s *ValueSource) Process(_ context.Context, r *engine.Round) error {
	n := s.length()
	if n == 0 {
		return engine.ErrSourceDone
	}
	if s.index >= n {
		s.pass++
		s.index = 0
	}
	repeat, _ := intProperty(&s.BaseOperation, "repeat")
	if repeat > 0 && s.pass >= repeat {
		return engine.ErrSourceDone
	}
	v := s.at(s.index)
	s.index++
	return r.Emit("output", v)
}
