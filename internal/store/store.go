package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a trace database by one user_version step.
type migration struct {
	version int
	stmt    string
}

// migrations run in order on Open. Version 1 adds the per-socket lookup
// index used by ReadOutput.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_emissions_socket ON emissions(run_id, operation, output, seq)`},
}

// traceVersion is the user_version of a fully migrated trace.
var traceVersion = migrations[len(migrations)-1].version

// tracePragmas configure every trace connection.
var tracePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store is the SQLite trace log of pipeline runs.
type Store struct {
	db *sql.DB
}

// Open creates or reopens the trace at path. Runs already recorded stay
// intact; the schema and migrations are idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	// Pragmas are per connection and the recorder is the only writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range tracePragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return migrate(db)
}

func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read trace version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate trace to v%d: %w", m.version, err)
		}
	}
	if current >= traceVersion {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", traceVersion)); err != nil {
		return fmt.Errorf("write trace version: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// pragma reads a single pragma value as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	return value, nil
}
