package harness

import (
	"github.com/roach88/into/internal/iothread"
	"github.com/roach88/into/internal/store"
	"github.com/roach88/into/internal/variant"
)

// StatusRejected marks a run that never started because the pipeline
// failed to build or check.
const StatusRejected = "rejected"

// TraceEvent is one recorded emission.
type TraceEvent struct {
	Seq    int64
	Socket string // "operation.output"
	Value  variant.Variant
}

// RunTrace is the recorded outcome of one execution.
type RunTrace struct {
	ID     string
	Status string
	Error  string
	Trace  []TraceEvent
}

// Data returns the non-marker objects emitted by socket, in order.
func (r *RunTrace) Data(socket string) []variant.Variant {
	var out []variant.Variant
	for _, ev := range r.Trace {
		if ev.Socket == socket && ev.Value.Kind() != variant.KindControl {
			out = append(out, ev.Value)
		}
	}
	return out
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool

	Runs    []RunTrace
	Signals []iothread.Signal

	// Errors lists failed expectations; empty when Pass is true.
	Errors []string
}

// NewResult returns a passing result with no runs.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Runs:    []RunTrace{},
		Signals: []iothread.Signal{},
		Errors:  []string{},
	}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Completed returns the runs that finished without error.
func (r *Result) Completed() []RunTrace {
	var out []RunTrace
	for _, run := range r.Runs {
		if run.Status == store.StatusCompleted {
			out = append(out, run)
		}
	}
	return out
}
