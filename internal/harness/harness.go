package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/roach88/into/internal/compiler"
	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
	"github.com/roach88/into/internal/ops"
	"github.com/roach88/into/internal/store"
	"github.com/roach88/into/internal/testutil"
	"github.com/roach88/into/internal/variant"
)

// Harness holds the resources of one scenario execution.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	recorder *store.Recorder
	io       *iothread.Scheduler
	board    *iothread.SimDriver
	env      *ops.Env
}

// Run executes a scenario and checks its expectations and assertions.
//
// Each scenario gets a fresh in-memory trace store and a fresh simulated
// board. The returned error reports harness failures such as unreadable
// CUE; pipeline failures are part of the Result.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	board := DefaultBoard
	if sc.Board != nil {
		board = *sc.Board
	}
	h := &Harness{
		scenario: sc,
		store:    st,
		recorder: store.NewRecorder(st, sc.Name),
		board:    iothread.NewSimDriver(board.Outputs, board.Inputs),
	}
	h.io = iothread.New(
		iothread.WithTick(0),
		iothread.WithClock(testutil.NewFakeClock(testutil.DayStart(0))),
		iothread.WithObserver(h.recorder.Signal),
	)
	h.env = ops.NewEnv(h.io, h.board)

	result := NewResult()
	if err := h.execute(ctx, result); err != nil {
		return nil, err
	}
	h.checkExpect(result)
	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) pipeline() (*compiler.Pipeline, error) {
	src, filename := h.scenario.Source, h.scenario.Name+".cue"
	if h.scenario.Pipeline != "" {
		data, err := os.ReadFile(h.scenario.Pipeline)
		if err != nil {
			return nil, fmt.Errorf("failed to read pipeline: %w", err)
		}
		src, filename = string(data), h.scenario.Pipeline
	}
	pipelines, err := compiler.CompileString(filename, src)
	if err != nil {
		return nil, err
	}
	if h.scenario.Select == "" && len(pipelines) == 1 {
		return pipelines[0], nil
	}
	return compiler.Find(pipelines, h.scenario.Select)
}

// override applies the scenario's property overrides to p.
func (h *Harness) override(p *compiler.Pipeline) error {
	for key, raw := range h.scenario.Properties {
		opName, prop, _ := splitSocket(key)
		i := slices.IndexFunc(p.Operations, func(o compiler.OperationSpec) bool { return o.Name == opName })
		if i < 0 {
			return fmt.Errorf("properties: unknown operation %q", opName)
		}
		v, err := variant.FromGo(raw)
		if err != nil {
			return fmt.Errorf("properties: %s: %w", key, err)
		}
		if p.Operations[i].Properties == nil {
			p.Operations[i].Properties = make(map[string]variant.Variant)
		}
		p.Operations[i].Properties[prop] = v
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, result *Result) error {
	p, err := h.pipeline()
	if err != nil {
		return err
	}
	if err := h.override(p); err != nil {
		return err
	}

	runs := max(h.scenario.Runs, 1)
	ids := make([]string, runs)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", h.scenario.Name, i+1)
	}
	e, err := compiler.Build(p, ops.NewRegistry(h.env),
		engine.WithRecorder(h.recorder),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDs(ids...)),
	)
	if err != nil {
		result.Runs = append(result.Runs, RunTrace{Status: StatusRejected, Error: err.Error()})
		return nil
	}
	h.env.BindWaker(e)

	var rejected error
	for range runs {
		h.lowerInputs()
		if err := e.Execute(ctx); err != nil {
			rejected = err
			break
		}
		for _, edge := range h.scenario.Edges {
			h.board.SetInput(edge.Channel, edge.High)
			h.io.Step()
		}
		if err := e.Wait(ctx, engine.Stopped); err != nil {
			_ = e.Interrupt()
			return fmt.Errorf("waiting for run: %w", err)
		}
	}
	if err := e.Close(); err != nil {
		slog.Warn("closing pipeline", "scenario", h.scenario.Name, "error", err)
	}
	if err := h.recorder.Err(); err != nil {
		return fmt.Errorf("recording trace: %w", err)
	}

	if err := h.collect(ctx, result); err != nil {
		return err
	}
	if rejected != nil {
		result.Runs = append(result.Runs, RunTrace{Status: StatusRejected, Error: rejected.Error()})
	}
	return nil
}

// lowerInputs drives every edge channel low so each run sees the same
// transitions. Edges this produces are discarded by the input's reset.
func (h *Harness) lowerInputs() {
	if len(h.scenario.Edges) == 0 {
		return
	}
	for _, edge := range h.scenario.Edges {
		h.board.SetInput(edge.Channel, false)
	}
	h.io.Step()
}

// collect reads the recorded runs and signals back from the store.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	runs, err := h.store.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, run := range runs {
		emissions, err := h.store.ReadEmissions(ctx, run.ID)
		if err != nil {
			return err
		}
		rt := RunTrace{ID: run.ID, Status: run.Status, Error: run.Error}
		for _, em := range emissions {
			rt.Trace = append(rt.Trace, TraceEvent{
				Seq:    em.Seq,
				Socket: em.Operation + "." + em.Output,
				Value:  em.Value,
			})
		}
		result.Runs = append(result.Runs, rt)

		signals, err := h.store.ReadSignals(ctx, run.ID)
		if err != nil {
			return err
		}
		result.Signals = append(result.Signals, signals...)
	}
	return nil
}

func (h *Harness) checkExpect(result *Result) {
	want := h.scenario.Expect
	if want.Error != "" {
		var got []string
		for _, run := range result.Runs {
			if run.Error != "" {
				got = append(got, run.Error)
			}
		}
		if !slices.ContainsFunc(got, func(msg string) bool { return strings.Contains(msg, want.Error) }) {
			result.AddError(fmt.Sprintf("expected an error containing %q, got %q", want.Error, got))
		}
	} else {
		for _, run := range result.Runs {
			if run.Status != store.StatusCompleted {
				result.AddError(fmt.Sprintf("run %q %s: %s", run.ID, run.Status, run.Error))
			}
		}
		if n := max(h.scenario.Runs, 1); len(result.Runs) != n {
			result.AddError(fmt.Sprintf("expected %d runs, recorded %d", n, len(result.Runs)))
		}
	}

	sockets := make([]string, 0, len(want.Outputs))
	for socket := range want.Outputs {
		sockets = append(sockets, socket)
	}
	slices.Sort(sockets)
	for _, run := range result.Completed() {
		for _, socket := range sockets {
			if msg := compareValues(want.Outputs[socket], run.Data(socket)); msg != "" {
				result.AddError(fmt.Sprintf("run %q %s: %s", run.ID, socket, msg))
			}
		}
	}
}

// compareValues reports the first mismatch between expected YAML values
// and emitted objects, or "".
func compareValues(want []any, got []variant.Variant) string {
	for i := range min(len(want), len(got)) {
		if !matchValue(want[i], got[i]) {
			return fmt.Sprintf("object %d: expected %v, got %s", i, want[i], formatValue(got[i]))
		}
	}
	if len(want) != len(got) {
		return fmt.Sprintf("expected %d objects, got %d", len(want), len(got))
	}
	return ""
}

// matchValue compares a decoded YAML value with an emitted object. Scalars
// compare by numeric value regardless of kind; matrices by shape and data.
func matchValue(want any, got variant.Variant) bool {
	w, err := variant.FromGo(want)
	if err != nil {
		return false
	}
	if variant.ScalarKinds.Accepts(w.Kind()) && variant.ScalarKinds.Accepts(variant.KindOf(got)) &&
		w.Kind() != variant.KindControl && variant.KindOf(got) != variant.KindControl {
		wc, err1 := variant.ToComplex128(w)
		gc, err2 := variant.ToComplex128(got)
		return err1 == nil && err2 == nil && wc == gc
	}
	wm, ok1 := w.(*variant.Matrix)
	gm, ok2 := got.(*variant.Matrix)
	if ok1 && ok2 {
		return slices.Equal(wm.Dims(), gm.Dims()) && slices.Equal(wm.Data(), gm.Data())
	}
	return variant.Equal(w, got)
}

// formatValue renders v as canonical JSON.
func formatValue(v variant.Variant) string {
	b, err := variant.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", variant.KindOf(v), err)
	}
	return string(b)
}
