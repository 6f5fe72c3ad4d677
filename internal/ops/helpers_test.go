package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func add(t *testing.T, e *engine.Engine, ops ...engine.Operation) {
	t.Helper()
	for _, op := range ops {
		require.NoError(t, e.AddOperation(op))
	}
}

func connect(t *testing.T, e *engine.Engine, src, output, dst, input string) {
	t.Helper()
	require.NoError(t, e.Connect(src, output, dst, input))
}

// run executes e until every source is exhausted and fails on any error.
func run(t *testing.T, e *engine.Engine) {
	t.Helper()
	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.NoError(t, e.Wait(ctx, engine.Stopped))
	require.NoError(t, e.Err())
}

func source(t *testing.T, name string, value variant.Variant) *ValueSource {
	t.Helper()
	s, err := NewValueSource(name)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty("value", value))
	return s
}

func collector(t *testing.T, name string) *Collector {
	t.Helper()
	c, err := NewCollector(name)
	require.NoError(t, err)
	return c
}
