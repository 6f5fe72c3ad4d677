package testutil

import "sync"

// FixedRunIDs hands out predetermined run IDs so recorded traces are
// byte-identical across test runs. Once the list is used up the last ID
// repeats.
//
// Thread-safety: safe for concurrent use.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs returns a generator yielding ids in order. With no ids it
// always yields "run-default".
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	if len(ids) == 0 {
		ids = []string{"run-default"}
	}
	return &FixedRunIDs{ids: ids}
}

// Generate implements engine.RunIDGenerator.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
