package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/ops"
	"github.com/roach88/into/internal/variant"
)

// OperationType describes a registered operation type.
type OperationType struct {
	Type       string         `json:"type"`
	Inputs     []SocketInfo   `json:"inputs"`
	Outputs    []string       `json:"outputs"`
	Properties []PropertyInfo `json:"properties"`
}

// SocketInfo describes an input socket.
type SocketInfo struct {
	Name    string `json:"name"`
	Accepts string `json:"accepts"`
	Group   int    `json:"group"`
}

// PropertyInfo describes a declared property.
type PropertyInfo struct {
	Name    string          `json:"name"`
	Accepts string          `json:"accepts"`
	Default json.RawMessage `json:"default,omitempty"`
	Doc     string          `json:"doc,omitempty"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops [type...]",
		Short: "List the built-in operation types",
		Long: `List the operation types available to pipeline definitions, with
their sockets and properties. Name types to show only those.

Examples:
  into ops
  into ops threshold histogram --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runOps(opts *RootOptions, names []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	reg := ops.NewRegistry(ops.NewEnv(nil, nil))
	if len(names) == 0 {
		names = reg.Types()
	}

	types := make([]OperationType, 0, len(names))
	for _, name := range names {
		op, err := reg.Create(name, name)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "unknown operation type", err)
		}
		info, err := describe(name, op)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "failed to describe "+name, err)
		}
		types = append(types, info)
	}

	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: types})
	}
	for i, t := range types {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		writeOperationType(f, t)
	}
	return nil
}

func describe(typeName string, op engine.Operation) (OperationType, error) {
	base := op.Base()
	t := OperationType{
		Type:       typeName,
		Inputs:     []SocketInfo{},
		Outputs:    []string{},
		Properties: []PropertyInfo{},
	}
	for _, in := range base.Inputs() {
		t.Inputs = append(t.Inputs, SocketInfo{Name: in.Name(), Accepts: in.Accepts().String(), Group: in.GroupID()})
	}
	for _, out := range base.Outputs() {
		t.Outputs = append(t.Outputs, out.Name())
	}
	for _, decl := range base.Properties() {
		p := PropertyInfo{Name: decl.Name, Accepts: decl.Accepts.String(), Doc: decl.Doc}
		if variant.IsValid(decl.Default) {
			data, err := variant.MarshalCanonical(decl.Default)
			if err != nil {
				return t, fmt.Errorf("default of %s: %w", decl.Name, err)
			}
			p.Default = data
		}
		t.Properties = append(t.Properties, p)
	}
	return t, nil
}

func writeOperationType(f *OutputFormatter, t OperationType) {
	w := f.Writer
	fmt.Fprintln(w, t.Type)
	for _, in := range t.Inputs {
		fmt.Fprintf(w, "  in   %-12s %s group %d\n", in.Name, in.Accepts, in.Group)
	}
	for _, out := range t.Outputs {
		fmt.Fprintf(w, "  out  %s\n", out)
	}
	for _, p := range t.Properties {
		fmt.Fprintf(w, "  prop %-18s %s", p.Name, p.Accepts)
		if p.Default != nil {
			fmt.Fprintf(w, " = %s", p.Default)
		}
		if p.Doc != "" {
			fmt.Fprintf(w, "  # %s", p.Doc)
		}
		fmt.Fprintln(w)
	}
}
