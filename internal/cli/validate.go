package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/into/internal/compiler"
	"github.com/roach88/into/internal/ops"
)

// PipelineReport holds the validation results of one pipeline.
type PipelineReport struct {
	Name        string                     `json:"name"`
	Operations  int                        `json:"operations"`
	Connections int                        `json:"connections"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
	Warnings    []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Pipelines []PipelineReport `json:"pipelines"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "validate <pipelines-dir>",
		Short: "Validate pipelines without running them",
		Long: `Validate the CUE pipeline definitions in a directory.

Every operation is instantiated from the registry, properties are checked
against their declarations and connections against the sockets of both
ends. Feedback loops are reported as warnings. Operation checks that need
hardware (digital I/O) only run when the pipeline executes.

Examples:
  into validate ./pipelines
  into validate ./pipelines --pipeline binarize --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], only, cmd)
		},
	}

	cmd.Flags().StringVarP(&only, "pipeline", "p", "", "validate only this pipeline")

	return cmd
}

func runValidate(opts *RootOptions, dir, only string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	pipelines, err := loadPipelines(f, dir)
	if err != nil {
		return err
	}
	if only != "" {
		p, err := selectPipeline(f, pipelines, only)
		if err != nil {
			return err
		}
		pipelines = []*compiler.Pipeline{p}
	}

	// Digital operations only need their board at Check time.
	reg := ops.NewRegistry(ops.NewEnv(nil, nil))

	result := ValidationResult{Valid: true, Pipelines: make([]PipelineReport, 0, len(pipelines))}
	errCount := 0
	for _, p := range pipelines {
		f.VerboseLog("Validating pipeline: %s", p.Name)
		report := PipelineReport{
			Name:        p.Name,
			Operations:  len(p.Operations),
			Connections: len(p.Connections),
			Errors:      compiler.Validate(p, reg),
			Warnings:    compiler.AnalyzeCycles(p),
		}
		if len(report.Errors) > 0 {
			result.Valid = false
			errCount += len(report.Errors)
		}
		result.Pipelines = append(result.Pipelines, report)
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			first := firstValidationError(result)
			resp.Error = &CLIError{Code: first.Code, Message: first.Error()}
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		writeValidationText(f, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}
	return nil
}

func firstValidationError(result ValidationResult) compiler.ValidationError {
	for _, r := range result.Pipelines {
		if len(r.Errors) > 0 {
			return r.Errors[0]
		}
	}
	return compiler.ValidationError{}
}

func writeValidationText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	for _, r := range result.Pipelines {
		if len(r.Errors) == 0 {
			fmt.Fprintf(w, "✓ %s (%d operations, %d connections)\n", r.Name, r.Operations, r.Connections)
		} else {
			fmt.Fprintf(w, "✗ %s\n", r.Name)
			for _, e := range r.Errors {
				if e.Line > 0 {
					fmt.Fprintf(w, "  line %d: %s: %s\n", e.Line, e.Code, e.Message)
				} else {
					fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
				}
			}
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  ⚠ %s: %s\n", strings.Join(warn.Path, " -> "), warn.Message)
		}
	}
	if result.Valid {
		fmt.Fprintln(w, "✓ All pipelines valid")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}
}
