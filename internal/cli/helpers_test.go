package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/testutil"
)

const binarizePipeline = `pipeline: binarize: {
	operations: {
		src: {
			type: "value_source"
			properties: values: [1, 2, 3, 4]
		}
		thr: {
			type: "threshold"
			properties: absoluteThreshold: 2.5
		}
		sink: type: "collector"
	}
	connections: [
		"src.output -> thr.image",
		"thr.image -> sink.input",
	]
}
`

// writePipelines creates a CUE package directory holding files.
func writePipelines(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("package pipelines\n\n"+src), 0o644))
	}
	return dir
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// runWithIDs executes the run command with fixed run IDs.
func runWithIDs(t *testing.T, db, dir, pipeline string, ids ...string) (string, error) {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		Pipeline:    pipeline,
		Tick:        time.Millisecond,
		Outputs:     8,
		Inputs:      8,
		RunIDs:      testutil.NewFixedRunIDs(ids...),
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := runPipeline(opts, dir, cmd)
	return out.String(), err
}

// decodeResponse parses a JSON CLI response, keeping Data raw.
func decodeResponse(t *testing.T, out string) (CLIResponse, json.RawMessage) {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp.CLIResponse, resp.Data
}
