package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/store"
)

// recordRuns runs binarize twice, then a variant with a lower threshold.
func recordRuns(t *testing.T) string {
	t.Helper()
	dir := writePipelines(t, map[string]string{"binarize.cue": binarizePipeline})
	lower := writePipelines(t, map[string]string{"binarize.cue": strings.Replace(
		binarizePipeline, "absoluteThreshold: 2.5", "absoluteThreshold: 1.5", 1)})
	db := filepath.Join(t.TempDir(), "trace.db")

	for _, run := range []struct{ dir, id string }{{dir, "run-1"}, {dir, "run-2"}, {lower, "run-3"}} {
		_, err := runWithIDs(t, db, run.dir, "", run.id)
		require.NoError(t, err)
	}
	return db
}

func TestTrace_List(t *testing.T) {
	db := recordRuns(t)

	out, err := execute(t, "trace", "--db", db, "--list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		assert.Contains(t, lines[i], id)
		assert.Contains(t, lines[i], "completed")
		assert.Contains(t, lines[i], "10 emission(s)")
	}

	out, err = execute(t, "trace", "--db", db, "--list", "--format", "json")
	require.NoError(t, err)
	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(data, &runs))
	require.Len(t, runs, 3)
	assert.Equal(t, "run-1", runs[0]["id"])
	assert.EqualValues(t, 1, runs[0]["ordinal"])
}

func TestTrace_LatestRun(t *testing.T) {
	db := recordRuns(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Run run-3 (binarize): completed\n"), out)
	assert.Contains(t, out, `    2 thr.image {"kind":"uint8","value":0}`)
	assert.Contains(t, out, `    4 thr.image {"kind":"uint8","value":1}`)
}

func TestTrace_SocketFilter(t *testing.T) {
	db := recordRuns(t)

	out, err := execute(t, "trace", "--db", db, "run-1", "--socket", "thr.image")
	require.NoError(t, err)
	want := `Run run-1 (binarize): completed
    2 thr.image {"kind":"uint8","value":0}
    4 thr.image {"kind":"uint8","value":0}
    6 thr.image {"kind":"uint8","value":1}
    8 thr.image {"kind":"uint8","value":1}
   10 thr.image {"kind":"control","value":"stop"}
`
	assert.Equal(t, want, out)
}

func TestTrace_JSON(t *testing.T) {
	db := recordRuns(t)

	out, err := execute(t, "trace", "--db", db, "run-2", "--format", "json")
	require.NoError(t, err)
	resp, data := decodeResponse(t, out)
	assert.Equal(t, "run-2", resp.RunID)

	var result TraceResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "run-2", result.Run.ID)
	require.Len(t, result.Timeline, 10)
	assert.Equal(t, "src.output", result.Timeline[0].Socket)
	assert.JSONEq(t, `{"kind":"int64","value":1}`, string(result.Timeline[0].Value))
	assert.Empty(t, result.Signals)
}

func TestTrace_Compare(t *testing.T) {
	db := recordRuns(t)

	out, err := execute(t, "trace", "--db", db, "run-2", "--against", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "✓ run-2 and run-1 are identical\n", out)

	out, err = execute(t, "trace", "--db", db, "run-3", "--against", "run-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "✗ run-3 and run-1 diverge at seq 4: thr.image emitted different values\n", out)

	out, err = execute(t, "trace", "--db", db, "run-3", "--against", "run-1", "--format", "json")
	require.Error(t, err)
	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDiverged, resp.Error.Code)
	var result CompareResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Identical)
	require.NotNil(t, result.Divergence)
	assert.Equal(t, int64(4), result.Divergence.Seq)
}

func TestTrace_Errors(t *testing.T) {
	db := recordRuns(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing database", []string{"trace", "--db", filepath.Join(t.TempDir(), "none.db")}, "Error [E005]: database not found"},
		{"unknown run", []string{"trace", "--db", db, "run-9"}, "Error [E005]: failed to read run"},
		{"unknown comparison run", []string{"trace", "--db", db, "run-1", "--against", "run-9"}, "Error [E005]: failed to compare runs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTrace_EmptyStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "trace", "--db", db, "--list")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)

	out, err = execute(t, "trace", "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E005]: failed to read run")
}
