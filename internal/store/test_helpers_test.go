package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEmission creates an emission on src.output.
func createTestEmission(runID string, seq int64, v variant.Variant) engine.Emission {
	return engine.Emission{
		RunID:     runID,
		Seq:       seq,
		Operation: "src",
		Output:    "output",
		Value:     v,
	}
}
