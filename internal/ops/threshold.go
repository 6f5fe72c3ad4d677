package ops

import (
	"context"
	"fmt"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// ThresholdOperation binarises scalars and matrices against
// absoluteThreshold. Values at or above the threshold become 1, the rest 0;
// inverse swaps the two. Output elements are uint8.
type ThresholdOperation struct {
	engine.BaseOperation
	threshold float64
	inverse   bool
}

// NewThresholdOperation creates the operation with its "image" sockets.
func NewThresholdOperation(name string) (*ThresholdOperation, error) {
	t := &ThresholdOperation{BaseOperation: engine.NewBaseOperation(name)}
	if _, err := t.AddInput("image", dataKinds); err != nil {
		return nil, err
	}
	if _, err := t.AddOutput("image"); err != nil {
		return nil, err
	}
	t.DeclareProperty(engine.PropertyDecl{Name: "absoluteThreshold", Accepts: floatKinds})
	t.DeclareProperty(engine.PropertyDecl{Name: "inverse", Accepts: boolKinds, Default: variant.Bool(false)})
	return t, nil
}

// Check fails when absoluteThreshold is unset.
func (t *ThresholdOperation) Check(reset bool) error {
	if err := t.BaseOperation.Check(reset); err != nil {
		return err
	}
	v, err := t.RequireProperty("absoluteThreshold")
	if err != nil {
		return err
	}
	if t.threshold, err = variant.ToFloat64(v); err != nil {
		return err
	}
	t.inverse = boolProperty(&t.BaseOperation, "inverse")
	return nil
}

func (t *ThresholdOperation) binary(f float64) float64 {
	if (f >= t.threshold) != t.inverse {
		return 1
	}
	return 0
}

func (t *ThresholdOperation) Process(_ context.Context, r *engine.Round) error {
	switch in := r.Read("image").(type) {
	case *variant.Matrix:
		out, err := variant.Zeros(variant.KindUint8, in.Dims()...)
		if err != nil {
			return err
		}
		for i := 0; i < in.Len(); i++ {
			out.Set(i, t.binary(in.At(i)))
		}
		return r.Emit("image", out)
	case nil:
		return fmt.Errorf("threshold: no input")
	default:
		f, err := variant.ToFloat64(in)
		if err != nil {
			return err
		}
		return r.Emit("image", variant.Uint8(t.binary(f)))
	}
}
