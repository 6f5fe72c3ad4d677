package harness

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the text stored in golden files: one block
// per run listing every emission in seq order, then the applied board
// signals.
func Snapshot(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario %s\n", name)
	writeTrace(&buf, result.Runs)
	if len(result.Signals) > 0 {
		fmt.Fprintf(&buf, "signals\n")
		for _, sig := range result.Signals {
			fmt.Fprintf(&buf, "  ch%d %g at %s", sig.Channel, sig.Value, sig.At)
			if sig.PulseWidth > 0 {
				fmt.Fprintf(&buf, " pulse %dms", sig.PulseWidth)
			}
			buf.WriteByte('\n')
		}
	}
	return []byte(buf.String())
}

func writeTrace(w io.Writer, runs []RunTrace) {
	for _, run := range runs {
		fmt.Fprintf(w, "run %s %s", run.ID, run.Status)
		if run.Error != "" {
			fmt.Fprintf(w, ": %s", run.Error)
		}
		fmt.Fprintln(w)
		for _, ev := range run.Trace {
			fmt.Fprintf(w, "  %3d %s %s\n", ev.Seq, ev.Socket, formatValue(ev.Value))
		}
	}
}

// RunWithGolden executes a scenario, fails the test on unmet
// expectations and compares the trace with
// testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := Run(ctx, scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
