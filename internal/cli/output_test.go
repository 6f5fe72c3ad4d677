package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", cause, ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "run failed", cause)), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)
	assert.Equal(t, "failed to open database: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())
}

func TestOutputFormatter_Text(t *testing.T) {
	var out, diag bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &diag}

	require.NoError(t, f.Success("done"))
	require.NoError(t, f.Error(ErrCodeNotFound, "no such run", "run-9"))
	f.VerboseLog("hidden %d", 1)

	assert.Equal(t, "done\nError [E005]: no such run\n", out.String())
	assert.Empty(t, diag.String(), "details and verbose logs need --verbose")

	f.Verbose = true
	f.VerboseLog("loaded %d pipeline(s)", 2)
	assert.Equal(t, "loaded 2 pipeline(s)\n", diag.String())
}

func TestOutputFormatter_JSON(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out}

	require.NoError(t, f.Success(map[string]int{"runs": 2}))
	resp, data := decodeResponse(t, out.String())
	assert.Equal(t, "ok", resp.Status)
	assert.JSONEq(t, `{"runs": 2}`, string(data))

	out.Reset()
	err := f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", errors.New("locked"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp, _ = decodeResponse(t, out.String())
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Equal(t, "failed to open database: locked", resp.Error.Message)
}

func TestOutputFormatter_ErrWriterFallback(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, Verbose: true}
	assert.Same(t, &out, f.GetErrWriter())
	f.VerboseLog("note")
	assert.Equal(t, "note\n", out.String())
}
