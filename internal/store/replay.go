package store

import (
	"context"
	"fmt"
)

// Divergence describes the first point where two runs differ.
type Divergence struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// CompareRuns checks that two runs emitted the same objects from the same
// sockets in the same order. It returns nil when the traces match.
//
// Seq numbers are compared by position, so runs of the same pipeline are
// comparable regardless of their run IDs.
func (s *Store) CompareRuns(ctx context.Context, a, b string) (*Divergence, error) {
	for _, id := range []string{a, b} {
		if _, err := s.ReadRun(ctx, id); err != nil {
			return nil, err
		}
	}
	left, err := s.ReadEmissions(ctx, a)
	if err != nil {
		return nil, err
	}
	right, err := s.ReadEmissions(ctx, b)
	if err != nil {
		return nil, err
	}

	for i := range min(len(left), len(right)) {
		l, r := left[i], right[i]
		switch {
		case l.Operation != r.Operation || l.Output != r.Output:
			return &Divergence{Seq: l.Seq, Reason: fmt.Sprintf(
				"socket %s.%s vs %s.%s", l.Operation, l.Output, r.Operation, r.Output)}, nil
		case l.Digest != r.Digest:
			return &Divergence{Seq: l.Seq, Reason: fmt.Sprintf(
				"%s.%s emitted different values", l.Operation, l.Output)}, nil
		}
	}
	if len(left) != len(right) {
		seq := int64(min(len(left), len(right)) + 1)
		return &Divergence{Seq: seq, Reason: fmt.Sprintf(
			"%d emissions vs %d", len(left), len(right))}, nil
	}
	return nil, nil
}
