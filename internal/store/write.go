package store

import (
	"context"
	"fmt"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StartRun inserts a run in the running state. Starting the same run ID
// twice is a no-op.
func (s *Store) StartRun(ctx context.Context, runID, pipeline string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, ordinal, pipeline, status)
		VALUES (?, (SELECT COALESCE(MAX(ordinal), 0) + 1 FROM runs), ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, runID, pipeline, StatusRunning)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?,
		    last_seq = (SELECT COALESCE(MAX(seq), 0) FROM emissions WHERE run_id = ?)
		WHERE id = ?
	`, status, msg, runID, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: %w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// WriteEmission appends an emission to its run. Uses ON CONFLICT DO
// NOTHING so a replayed write with the same (run_id, seq) is ignored.
//
// Note: the run must exist (foreign key constraint).
func (s *Store) WriteEmission(ctx context.Context, e engine.Emission) error {
	sv, err := marshalValue(e.Value)
	if err != nil {
		return fmt.Errorf("write emission: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emissions (run_id, seq, operation, output, kind, value, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, e.RunID, e.Seq, e.Operation, e.Output, sv.kind, sv.value, sv.digest)
	if err != nil {
		return fmt.Errorf("write emission: %w", err)
	}
	return nil
}

// WriteSignal logs an applied output change. runID may be empty for
// changes outside a run.
func (s *Store) WriteSignal(ctx context.Context, runID string, sig iothread.Signal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (run_id, channel, value, day, msecs, pulse_width)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, sig.Channel, sig.Value, sig.At.Day, sig.At.Msecs, sig.PulseWidth)
	if err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	return nil
}
