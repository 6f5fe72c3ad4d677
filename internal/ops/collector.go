package ops

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/variant"
)

// Collector is a sink that keeps everything it receives on "input".
type Collector struct {
	engine.BaseOperation
	mu       sync.Mutex
	values   []variant.Variant
	events   []engine.SyncEvent
	finished bool
}

func NewCollector(name string) (*Collector, error) {
	c := &Collector{BaseOperation: engine.NewBaseOperation(name)}
	if _, err := c.AddInput("input", variant.AnyKind); err != nil {
		return nil, err
	}
	c.DeclareProperty(engine.PropertyDecl{Name: "capacity", Accepts: intKinds, Default: variant.Int64(0),
		Doc: "input queue capacity; 0 is unbounded"})
	return c, nil
}

func (c *Collector) Check(reset bool) error {
	if err := c.BaseOperation.Check(reset); err != nil {
		return err
	}
	capacity, err := intProperty(&c.BaseOperation, "capacity")
	if err != nil {
		return err
	}
	if capacity < 0 {
		return rangeError(&c.BaseOperation, "capacity", "%d is negative", capacity)
	}
	c.Input("input").SetCapacity(capacity)
	if reset {
		c.mu.Lock()
		c.values, c.events, c.finished = nil, nil, false
		c.mu.Unlock()
	}
	return nil
}

func (c *Collector) Process(_ context.Context, r *engine.Round) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, r.Read("input"))
	return nil
}

func (c *Collector) SyncEvent(_ context.Context, _ *engine.Round, ev engine.SyncEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *Collector) Finish(context.Context, *engine.Round) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
	return nil
}

// Values returns the objects received during the current run.
func (c *Collector) Values() []variant.Variant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.values)
}

// Events returns the sync events seen during the current run.
func (c *Collector) Events() []engine.SyncEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

// Finished reports whether the input stream has ended.
func (c *Collector) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}
