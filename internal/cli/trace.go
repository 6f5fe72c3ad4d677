package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/into/internal/store"
	"github.com/roach88/into/internal/variant"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	List     bool
	Socket   string // optional - filter to one output socket
	Against  string // optional - run to compare with
}

// TraceEntry is one recorded emission.
type TraceEntry struct {
	Seq    int64           `json:"seq"`
	Socket string          `json:"socket"`
	Value  json.RawMessage `json:"value"`
}

// TraceSignal is one applied output change.
type TraceSignal struct {
	Channel    int     `json:"channel"`
	Value      float64 `json:"value"`
	At         string  `json:"at"`
	PulseWidth int     `json:"pulse_width,omitempty"`
}

// TraceResult holds the trace of one run.
type TraceResult struct {
	Run      store.Run     `json:"run"`
	Timeline []TraceEntry  `json:"timeline"`
	Signals  []TraceSignal `json:"signals"`
}

// CompareResult holds the outcome of --against.
type CompareResult struct {
	Run        string            `json:"run"`
	Against    string            `json:"against"`
	Identical  bool              `json:"identical"`
	Divergence *store.Divergence `json:"divergence,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect recorded runs",
		Long: `Inspect the runs recorded in a trace store.

Without a run ID the most recent run is shown. The timeline lists every
emitted object in emission order, followed by the signals applied to the
I/O board.

With --against, the two runs are compared object by object and the first
divergence is reported. Runs of a deterministic pipeline are identical.

Examples:
  into trace --db ./trace.db --list
  into trace --db ./trace.db
  into trace --db ./trace.db 0190c3d2-... --socket thr.image
  into trace --db ./trace.db run-2 --against run-1`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")
	cmd.Flags().StringVar(&opts.Socket, "socket", "", "show only emissions of this output (operation.output)")
	cmd.Flags().StringVar(&opts.Against, "against", "", "compare the run with another run")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	// Opening creates missing files; a trace query must not.
	if _, err := os.Stat(opts.Database); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, f, st)
	}

	run, err := selectRun(ctx, st, runID)
	if err != nil {
		code := ErrCodeDatabase
		if errors.Is(err, store.ErrRunNotFound) {
			code = ErrCodeNotFound
		}
		return f.Fail(ExitCommandError, code, "failed to read run", err)
	}

	if opts.Against != "" {
		return compareRuns(ctx, f, st, run.ID, opts.Against)
	}

	result, err := buildTrace(ctx, st, run, opts.Socket)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read trace", err)
	}
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	writeTraceText(f, result)
	return nil
}

// selectRun returns runID, or the latest run when runID is empty.
func selectRun(ctx context.Context, st *store.Store, runID string) (store.Run, error) {
	if runID == "" {
		return st.LatestRun(ctx)
	}
	return st.ReadRun(ctx, runID)
}

func listRuns(ctx context.Context, f *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
	}
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(f.Writer, "%4d  %s  %-12s %-9s %d emission(s)", r.Ordinal, r.ID, r.Pipeline, r.Status, r.LastSeq)
		if r.Error != "" {
			fmt.Fprintf(f.Writer, "  %s", r.Error)
		}
		fmt.Fprintln(f.Writer)
	}
	return nil
}

func buildTrace(ctx context.Context, st *store.Store, run store.Run, socket string) (TraceResult, error) {
	result := TraceResult{Run: run, Timeline: []TraceEntry{}, Signals: []TraceSignal{}}

	emissions, err := st.ReadEmissions(ctx, run.ID)
	if err != nil {
		return result, err
	}
	for _, em := range emissions {
		name := em.Operation + "." + em.Output
		if socket != "" && name != socket {
			continue
		}
		data, err := variant.MarshalCanonical(em.Value)
		if err != nil {
			return result, fmt.Errorf("seq %d: %w", em.Seq, err)
		}
		result.Timeline = append(result.Timeline, TraceEntry{Seq: em.Seq, Socket: name, Value: data})
	}

	signals, err := st.ReadSignals(ctx, run.ID)
	if err != nil {
		return result, err
	}
	for _, sig := range signals {
		result.Signals = append(result.Signals, TraceSignal{
			Channel:    sig.Channel,
			Value:      sig.Value,
			At:         sig.At.String(),
			PulseWidth: sig.PulseWidth,
		})
	}
	return result, nil
}

func writeTraceText(f *OutputFormatter, result TraceResult) {
	w := f.Writer
	r := result.Run
	fmt.Fprintf(w, "Run %s (%s): %s\n", r.ID, r.Pipeline, r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No emissions.")
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  %3d %s %s\n", e.Seq, e.Socket, e.Value)
	}
	if len(result.Signals) > 0 {
		fmt.Fprintln(w, "Signals:")
		for _, sig := range result.Signals {
			fmt.Fprintf(w, "  ch%d %g at %s", sig.Channel, sig.Value, sig.At)
			if sig.PulseWidth > 0 {
				fmt.Fprintf(w, " pulse %dms", sig.PulseWidth)
			}
			fmt.Fprintln(w)
		}
	}
}

func compareRuns(ctx context.Context, f *OutputFormatter, st *store.Store, a, b string) error {
	div, err := st.CompareRuns(ctx, a, b)
	if err != nil {
		code := ErrCodeDatabase
		if errors.Is(err, store.ErrRunNotFound) {
			code = ErrCodeNotFound
		}
		return f.Fail(ExitCommandError, code, "failed to compare runs", err)
	}
	result := CompareResult{Run: a, Against: b, Identical: div == nil, Divergence: div}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if div != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDiverged, Message: div.Reason}
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else if div == nil {
		fmt.Fprintf(f.Writer, "✓ %s and %s are identical\n", a, b)
	} else {
		fmt.Fprintf(f.Writer, "✗ %s and %s diverge at seq %d: %s\n", a, b, div.Seq, div.Reason)
	}

	if div != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("runs diverge at seq %d", div.Seq))
	}
	return nil
}
