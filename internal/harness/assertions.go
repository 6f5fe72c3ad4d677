package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/into/internal/variant"
)

// AssertionError is a failed assertion with enough context to debug it.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Runs     []RunTrace
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Runs) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		writeTrace(&buf, e.Runs)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertEmittedContains:
		return assertEmittedContains(result.Runs, a)
	case AssertEmittedOrder:
		return assertEmittedOrder(result.Runs, a)
	case AssertEmittedCount:
		return assertEmittedCount(result.Runs, a)
	case AssertRunStatus:
		return assertRunStatus(result.Runs, a)
	case AssertSignals:
		return assertSignals(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertEmittedContains(runs []RunTrace, a Assertion) error {
	for _, run := range runs {
		for _, v := range run.Data(a.Socket) {
			if matchValue(a.Value, v) {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertEmittedContains,
		Expected: fmt.Sprintf("%s emits %v", a.Socket, a.Value),
		Actual:   "not found in trace",
		Runs:     runs,
	}
}

// assertEmittedOrder checks the first data emission of each socket in the
// first run. Other sockets may emit in between.
func assertEmittedOrder(runs []RunTrace, a Assertion) error {
	if len(runs) == 0 {
		return &AssertionError{Type: AssertEmittedOrder, Expected: fmt.Sprint(a.Sockets), Actual: "no runs"}
	}
	first := make(map[string]int64)
	for _, ev := range runs[0].Trace {
		if ev.Value.Kind() == variant.KindControl {
			continue
		}
		if _, seen := first[ev.Socket]; !seen {
			first[ev.Socket] = ev.Seq
		}
	}
	for _, socket := range a.Sockets {
		if _, ok := first[socket]; !ok {
			return &AssertionError{
				Type:     AssertEmittedOrder,
				Expected: fmt.Sprintf("all sockets emit: %v", a.Sockets),
				Actual:   fmt.Sprintf("%s emitted nothing", socket),
				Runs:     runs[:1],
			}
		}
	}
	for i := 1; i < len(a.Sockets); i++ {
		prev, curr := a.Sockets[i-1], a.Sockets[i]
		if first[prev] >= first[curr] {
			return &AssertionError{
				Type:     AssertEmittedOrder,
				Expected: fmt.Sprintf("sockets in order: %v", a.Sockets),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, first[prev], curr, first[curr]),
				Runs: runs[:1],
			}
		}
	}
	return nil
}

func assertEmittedCount(runs []RunTrace, a Assertion) error {
	for _, run := range runs {
		if run.Status == StatusRejected {
			continue
		}
		if n := len(run.Data(a.Socket)); n != a.Count {
			return &AssertionError{
				Type:     AssertEmittedCount,
				Expected: fmt.Sprintf("%s emits %d objects", a.Socket, a.Count),
				Actual:   fmt.Sprintf("%d in run %q", n, run.ID),
				Runs:     []RunTrace{run},
			}
		}
	}
	return nil
}

func assertRunStatus(runs []RunTrace, a Assertion) error {
	for _, run := range runs {
		if run.Status != a.Status {
			return &AssertionError{
				Type:     AssertRunStatus,
				Expected: a.Status,
				Actual:   fmt.Sprintf("run %q %s %s", run.ID, run.Status, run.Error),
			}
		}
	}
	return nil
}

func assertSignals(result *Result, a Assertion) error {
	var got []variant.Variant
	for _, sig := range result.Signals {
		if sig.Channel == a.Channel {
			got = append(got, variant.Float64(sig.Value))
		}
	}
	if msg := compareValues(a.Values, got); msg != "" {
		return &AssertionError{
			Type:     AssertSignals,
			Expected: fmt.Sprintf("channel %d changes to %v", a.Channel, a.Values),
			Actual:   msg,
		}
	}
	return nil
}
