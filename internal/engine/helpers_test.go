package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/variant"
)

// sliceSource emits one value per round, then reports ErrSourceDone.
// With repeat set it cycles forever.
type sliceSource struct {
	BaseOperation
	values []variant.Variant
	next   int
	repeat bool
}

func newSliceSource(t *testing.T, name string, values ...variant.Variant) *sliceSource {
	t.Helper()
	s := &sliceSource{BaseOperation: NewBaseOperation(name), values: values}
	_, err := s.AddOutput("output")
	require.NoError(t, err)
	return s
}

func (s *sliceSource) Check(reset bool) error {
	if reset {
		s.next = 0
	}
	return s.BaseOperation.Check(reset)
}

func (s *sliceSource) Process(_ context.Context, r *Round) error {
	if s.next >= len(s.values) {
		if !s.repeat || len(s.values) == 0 {
			return ErrSourceDone
		}
		s.next = 0
	}
	v := s.values[s.next]
	s.next++
	return r.Emit("output", v)
}

// sink records everything it sees on its "input" socket.
type sink struct {
	BaseOperation
	mu       sync.Mutex
	got      []variant.Variant
	events   []SyncEvent
	finished int
}

func newSink(t *testing.T, name string, accepts variant.KindSet) *sink {
	t.Helper()
	s := &sink{BaseOperation: NewBaseOperation(name)}
	_, err := s.AddInput("input", accepts)
	require.NoError(t, err)
	return s
}

func (s *sink) Process(_ context.Context, r *Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r.Read("input"))
	return nil
}

func (s *sink) SyncEvent(_ context.Context, _ *Round, ev SyncEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *sink) Finish(context.Context, *Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished++
	return nil
}

func (s *sink) values() []variant.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]variant.Variant(nil), s.got...)
}

// doubler multiplies integer input by two.
type doubler struct {
	BaseOperation
}

func newDoubler(t *testing.T, name string) *doubler {
	t.Helper()
	d := &doubler{BaseOperation: NewBaseOperation(name)}
	_, err := d.AddInput("input", variant.Kinds(variant.KindInt64))
	require.NoError(t, err)
	_, err = d.AddOutput("output")
	require.NoError(t, err)
	return d
}

func (d *doubler) Process(_ context.Context, r *Round) error {
	n, err := variant.ToInt64(r.Read("input"))
	if err != nil {
		return err
	}
	return r.Emit("output", variant.Int64(2*n))
}

var errBoom = errors.New("boom")

// failing returns errBoom on the first object it receives.
type failing struct {
	BaseOperation
}

func newFailing(t *testing.T, name string) *failing {
	t.Helper()
	f := &failing{BaseOperation: NewBaseOperation(name)}
	_, err := f.AddInput("input", variant.AnyKind)
	require.NoError(t, err)
	return f
}

func (f *failing) Process(context.Context, *Round) error {
	return errBoom
}

// memRecorder keeps emissions in memory.
type memRecorder struct {
	mu        sync.Mutex
	emissions []Emission
	started   []string
	finished  []error
	closed    []string
}

func (m *memRecorder) Record(e Emission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emissions = append(m.emissions, e)
	return nil
}

func (m *memRecorder) RunStarted(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, runID)
}

func (m *memRecorder) RunFinished(runID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, err)
	m.closed = append(m.closed, runID)
}

func ints(values ...int64) []variant.Variant {
	out := make([]variant.Variant, len(values))
	for i, v := range values {
		out[i] = variant.Int64(v)
	}
	return out
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// runToCompletion executes e and waits for it to stop by itself.
func runToCompletion(t *testing.T, e *Engine) {
	t.Helper()
	ctx := waitCtx(t)
	require.NoError(t, e.Execute(ctx))
	require.NoError(t, e.Wait(ctx, Stopped))
}
