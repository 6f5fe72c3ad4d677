package ops

import (
	"context"
	"math"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// HistogramOperation counts values per level.
//
// Its "image" input (group 0) takes a matrix and reports its element count
// on "count" directly. Its "element" input (group 1) takes a delayed stream
// of scalars; at the end of each unit the accumulated bins are emitted on
// "histogram" as a delayed unit holding one int64 matrix.
type HistogramOperation struct {
	engine.BaseOperation
	levels int
	bins   []float64
}

func NewHistogramOperation(name string) (*HistogramOperation, error) {
	h := &HistogramOperation{BaseOperation: engine.NewBaseOperation(name)}
	image, err := h.AddInput("image", variant.Kinds(variant.KindMatrix))
	if err != nil {
		return nil, err
	}
	image.SetOptional(true)
	element, err := h.AddInput("element", variant.NumericKinds|variant.Kinds(variant.KindBool))
	if err != nil {
		return nil, err
	}
	element.SetOptional(true)
	element.SetGroupID(1)
	for _, out := range []string{"count", "histogram"} {
		if _, err := h.AddOutput(out); err != nil {
			return nil, err
		}
	}
	h.DeclareProperty(engine.PropertyDecl{Name: "levels", Accepts: intKinds, Default: variant.Int64(256),
		Doc: "number of bins; values outside [0, levels) are ignored"})
	return h, nil
}

func (h *HistogramOperation) Check(reset bool) error {
	if err := h.BaseOperation.Check(reset); err != nil {
		return err
	}
	if !h.Input("image").IsConnected() && !h.Input("element").IsConnected() {
		return &engine.ConfigError{Operation: h.Name(), Field: "element", Err: engine.ErrNotConnected}
	}
	levels, err := intProperty(&h.BaseOperation, "levels")
	if err != nil {
		return err
	}
	if levels <= 0 {
		return rangeError(&h.BaseOperation, "levels", "%d is not positive", levels)
	}
	if reset || levels != h.levels {
		h.levels = levels
		h.bins = make([]float64, levels)
	}
	return nil
}

func (h *HistogramOperation) Process(_ context.Context, r *engine.Round) error {
	switch r.Group() {
	case 0:
		m, ok := r.Read("image").(*variant.Matrix)
		if !ok {
			return nil
		}
		return r.Emit("count", variant.Int64(m.Len()))
	case 1:
		f, err := variant.ToFloat64(r.Read("element"))
		if err != nil {
			return err
		}
		if bin := math.Floor(f); bin >= 0 && bin < float64(h.levels) {
			h.bins[int(bin)]++
		}
	}
	return nil
}

func (h *HistogramOperation) SyncEvent(_ context.Context, r *engine.Round, ev engine.SyncEvent) error {
	if ev.Group != 1 {
		return nil
	}
	switch ev.Type {
	case engine.StartInput:
		clear(h.bins)
	case engine.EndInput:
		m, err := variant.NewMatrix(variant.KindInt64, []int{h.levels}, h.bins)
		if err != nil {
			return err
		}
		clear(h.bins)
		if err := r.StartDelay("histogram"); err != nil {
			return err
		}
		if err := r.Emit("histogram", m); err != nil {
			return err
		}
		return r.EndDelay("histogram")
	}
	return nil
}
