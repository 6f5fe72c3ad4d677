package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/into/internal/compiler"
	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
	"github.com/roach88/into/internal/ops"
	"github.com/roach88/into/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Pipeline  string
	Timeout   time.Duration
	Tick      time.Duration
	MaxRounds int
	Outputs   int
	Inputs    int

	// RunIDs overrides the run ID generator (for testing).
	// If nil, the engine uses UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID       string `json:"run_id"`
	Pipeline    string `json:"pipeline"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Emissions   int64  `json:"emissions"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

func (s RunSummary) String() string {
	line := fmt.Sprintf("Run %s (%s): %s, %d emission(s)", s.RunID, s.Pipeline, s.Status, s.Emissions)
	if s.Interrupted {
		line += ", interrupted"
	}
	if s.Error != "" {
		line += "\n  " + s.Error
	}
	return line
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <pipelines-dir>",
		Short: "Execute a pipeline and record its trace",
		Long: `Execute one pipeline from a directory of CUE definitions.

Every object the pipeline emits is recorded to the SQLite trace store
(created if it doesn't exist), together with the signals applied to the
simulated I/O board. The run ends when all sources are exhausted, on
--timeout, or on Ctrl-C.

Examples:
  into run --db ./trace.db ./pipelines
  into run --db ./trace.db ./pipelines --pipeline binarize --timeout 5s`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "pipeline to run (required when the directory defines several)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "interrupt the run after this long (0 = no limit)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", iothread.DefaultTick, "I/O scheduler polling interval")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", 0, "fail the run after this many productive rounds (0 = no limit)")
	cmd.Flags().IntVar(&opts.Outputs, "outputs", 8, "digital output channels of the simulated board")
	cmd.Flags().IntVar(&opts.Inputs, "inputs", 8, "digital input channels of the simulated board")

	return cmd
}

func runPipeline(opts *RunOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Tick <= 0 {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "--tick must be positive", nil)
	}

	pipelines, err := loadPipelines(f, dir)
	if err != nil {
		return err
	}
	p, err := selectPipeline(f, pipelines, opts.Pipeline)
	if err != nil {
		return err
	}

	slog.Info("opening trace store", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rec := store.NewRecorder(st, p.Name)
	board := iothread.NewSimDriver(opts.Outputs, opts.Inputs)
	sched := iothread.New(iothread.WithTick(opts.Tick), iothread.WithObserver(rec.Signal))
	env := ops.NewEnv(sched, board)

	engineOpts := []engine.Option{
		engine.WithRecorder(rec),
		engine.WithMaxRounds(opts.MaxRounds),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	e, err := compiler.Build(p, ops.NewRegistry(env), engineOpts...)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeConfig, "failed to build pipeline", err)
	}
	env.BindWaker(e)
	defer func() {
		if closeErr := e.Close(); closeErr != nil {
			slog.Warn("closing pipeline", "pipeline", p.Name, "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, interrupting run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	f.VerboseLog("Running pipeline %s (%d operations)", p.Name, len(p.Operations))
	if err := e.Execute(ctx); err != nil {
		return f.Fail(ExitFailure, ErrCodeConfig, "pipeline check failed", err)
	}
	// The loop halts by itself once ctx ends.
	if err := e.Wait(context.Background(), engine.Stopped); err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "waiting for pipeline", err)
	}
	runErr := e.Err()
	if err := rec.Err(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to record trace", err)
	}

	run, err := st.ReadRun(context.Background(), e.RunID())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
	}
	summary := RunSummary{
		RunID:       run.ID,
		Pipeline:    run.Pipeline,
		Status:      run.Status,
		Error:       run.Error,
		Emissions:   run.LastSeq,
		Interrupted: ctx.Err() != nil,
	}

	if runErr != nil {
		code := ErrCodeExecution
		if engine.IsConfigError(runErr) {
			code = ErrCodeConfig
		}
		if f.JSON() {
			_ = f.Error(code, runErr.Error(), summary)
		} else {
			fmt.Fprintln(f.Writer, summary)
		}
		return WrapExitError(ExitFailure, "pipeline failed", runErr)
	}
	return f.Success(summary)
}
