package ops

import (
	"context"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// MatrixSplitter emits the elements of each incoming matrix as one delayed
// unit: StartDelay, every element in row-major order, EndDelay.
type MatrixSplitter struct {
	engine.BaseOperation
}

func NewMatrixSplitter(name string) (*MatrixSplitter, error) {
	s := &MatrixSplitter{BaseOperation: engine.NewBaseOperation(name)}
	if _, err := s.AddInput("matrix", variant.Kinds(variant.KindMatrix)); err != nil {
		return nil, err
	}
	if _, err := s.AddOutput("element"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MatrixSplitter) Process(_ context.Context, r *engine.Round) error {
	m, ok := r.Read("matrix").(*variant.Matrix)
	if !ok {
		return nil
	}
	if err := r.StartDelay("element"); err != nil {
		return err
	}
	for i := 0; i < m.Len(); i++ {
		if err := r.Emit("element", m.ElementAt(i)); err != nil {
			return err
		}
	}
	return r.EndDelay("element")
}
