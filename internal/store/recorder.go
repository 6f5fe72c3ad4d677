package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
)

// Recorder writes engine runs and applied I/O signals to a Store. It
// implements engine.Recorder and engine.RunObserver; pass Signal to
// iothread.WithObserver to log output changes against the current run.
type Recorder struct {
	store    *Store
	pipeline string

	mu    sync.Mutex
	runID string
	err   error // first write failure of the current run
}

var (
	_ engine.Recorder    = (*Recorder)(nil)
	_ engine.RunObserver = (*Recorder)(nil)
)

// NewRecorder returns a recorder that files runs under pipeline.
func NewRecorder(s *Store, pipeline string) *Recorder {
	return &Recorder{store: s, pipeline: pipeline}
}

func (r *Recorder) RunStarted(runID string) {
	r.mu.Lock()
	r.runID, r.err = runID, nil
	r.mu.Unlock()
	if err := r.store.StartRun(context.Background(), runID, r.pipeline); err != nil {
		r.fail(err)
	}
}

func (r *Recorder) Record(e engine.Emission) error {
	err := r.store.WriteEmission(context.Background(), e)
	if err != nil {
		r.fail(err)
	}
	return err
}

func (r *Recorder) RunFinished(runID string, runErr error) {
	if err := r.store.FinishRun(context.Background(), runID, runErr); err != nil {
		r.fail(err)
	}
}

// Signal logs an applied output change.
func (r *Recorder) Signal(sig iothread.Signal) {
	r.mu.Lock()
	runID := r.runID
	r.mu.Unlock()
	if err := r.store.WriteSignal(context.Background(), runID, sig); err != nil {
		r.fail(err)
	}
}

// Err returns the first write failure since the last run started.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) fail(err error) {
	slog.Error("trace write failed", "pipeline", r.pipeline, "error", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}
