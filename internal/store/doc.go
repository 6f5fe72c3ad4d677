// Package store keeps pipeline traces in SQLite.
//
// A trace is an append-only log with three tables:
//   - runs: one row per engine execution, keyed by run ID
//   - emissions: every object that left an output socket, markers
//     included, keyed by (run_id, seq)
//   - signals: output changes applied by the I/O scheduler
//
// Values are stored as canonical JSON envelopes with a SHA-256 digest, so
// two runs can be compared emission by emission. All queries order by the
// logical seq column; wall time is never stored.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
