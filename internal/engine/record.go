package engine

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/into/internal/variant"
)

// RunIDGenerator produces the identifier of each execution.
// Implemented by UUIDv7Generator and testutil.FixedRunIDs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator returns time-sortable UUIDv7 strings. Safe for concurrent
// use.
type UUIDv7Generator struct{}

// Generate panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock is the logical clock that sequences emissions within a run.
// Sequence numbers start at 1 and never repeat.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Emission is one object leaving an output socket, markers included.
type Emission struct {
	RunID     string
	Seq       int64
	Operation string
	Output    string
	Value     variant.Variant
}

// Recorder receives every emission of a run, in emission order. Calls come
// from the scheduler loop or from the worker of a threaded operation but
// never concurrently.
type Recorder interface {
	Record(e Emission) error
}

// RunObserver is optionally implemented by a Recorder to learn about run
// boundaries. RunFinished is called before Stopped becomes observable.
type RunObserver interface {
	RunStarted(runID string)
	RunFinished(runID string, err error)
}
