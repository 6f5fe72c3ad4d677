package engine

import (
	"errors"
	"fmt"
)

// roundQuota counts productive rounds of one run against a limit. A zero
// limit disables it.
//
// The quota catches pipelines that never end by themselves, such as a
// repeating source feeding a sink, when a host needs bounded execution.
type roundQuota struct {
	limit   int
	current int
}

func (q *roundQuota) check(runID string) error {
	if q.limit <= 0 {
		return nil
	}
	q.current++
	if q.current > q.limit {
		return &RoundsExceededError{RunID: runID, Rounds: q.current, Limit: q.limit}
	}
	return nil
}

func (q *roundQuota) reset() { q.current = 0 }

// RoundsExceededError stops a run that made progress in more rounds than
// WithMaxRounds allows.
type RoundsExceededError struct {
	RunID  string
	Rounds int
	Limit  int
}

func (e *RoundsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max rounds: %d > %d", e.RunID, e.Rounds, e.Limit)
}

// IsRoundsExceededError reports whether err is or wraps a
// *RoundsExceededError.
func IsRoundsExceededError(err error) bool {
	var re *RoundsExceededError
	return errors.As(err, &re)
}

// WithMaxRounds bounds the number of productive rounds per run. Default 0
// means unlimited.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		e.quota.limit = n
	}
}
