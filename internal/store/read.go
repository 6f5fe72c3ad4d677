package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
	"github.com/roach88/into/internal/variant"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored execution.
type Run struct {
	ID       string `json:"id"`
	Ordinal  int64  `json:"ordinal"`
	Pipeline string `json:"pipeline"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	LastSeq  int64  `json:"last_seq"`
}

const runColumns = `id, ordinal, pipeline, status, error, last_seq`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Ordinal, &r.Pipeline, &r.Status, &r.Error, &r.LastSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ReadRun retrieves a single run by ID. Returns ErrRunNotFound if absent.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, ErrRunNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY ordinal DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns every run in start order.
// Returns an empty slice (not nil) when the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY ordinal ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// StoredEmission is an emission with the digest it was stored under.
type StoredEmission struct {
	engine.Emission
	Digest string
}

// ReadEmissions returns the emissions of a run ordered by seq.
// Returns an empty slice (not nil) if the run recorded nothing.
func (s *Store) ReadEmissions(ctx context.Context, runID string) ([]StoredEmission, error) {
	return s.queryEmissions(ctx, `
		SELECT run_id, seq, operation, output, value, digest
		FROM emissions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadOutput returns what one output socket emitted during a run, markers
// included, ordered by seq.
func (s *Store) ReadOutput(ctx context.Context, runID, operation, output string) ([]variant.Variant, error) {
	emissions, err := s.queryEmissions(ctx, `
		SELECT run_id, seq, operation, output, value, digest
		FROM emissions
		WHERE run_id = ? AND operation = ? AND output = ?
		ORDER BY seq ASC
	`, runID, operation, output)
	if err != nil {
		return nil, err
	}
	values := make([]variant.Variant, len(emissions))
	for i, e := range emissions {
		values[i] = e.Value
	}
	return values, nil
}

func (s *Store) queryEmissions(ctx context.Context, query string, args ...any) ([]StoredEmission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	defer rows.Close()

	emissions := []StoredEmission{}
	for rows.Next() {
		var (
			e    StoredEmission
			data string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Operation, &e.Output, &data, &e.Digest); err != nil {
			return nil, fmt.Errorf("scan emission: %w", err)
		}
		if e.Value, err = unmarshalValue(data); err != nil {
			return nil, err
		}
		emissions = append(emissions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}
	return emissions, nil
}

// ReadSignals returns the output changes logged for a run in the order
// they were applied.
func (s *Store) ReadSignals(ctx context.Context, runID string) ([]iothread.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, value, day, msecs, pulse_width
		FROM signals
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	signals := []iothread.Signal{}
	for rows.Next() {
		sig := iothread.Signal{State: iothread.Applied}
		if err := rows.Scan(&sig.Channel, &sig.Value, &sig.At.Day, &sig.At.Msecs, &sig.PulseWidth); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return signals, nil
}
