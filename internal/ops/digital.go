package ops

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/into/internal/engine"
	"github.com/roach88/into/internal/iothread"
	"github.com/roach88/into/internal/variant"
)

// ErrNoBoard is reported by digital operations whose Env has no scheduler
// or board.
var ErrNoBoard = errors.New("no I/O board configured")

func acquire(b *engine.BaseOperation, env *Env) (*iothread.Handle, error) {
	if env == nil || env.IO == nil || env.Board == nil {
		return nil, &engine.ConfigError{Operation: b.Name(), Err: ErrNoBoard}
	}
	return env.IO.Acquire(env.Board), nil
}

// DigitalOutput drives a board output channel whenever an object arrives on
// "trigger". The channel is set to the trigger's numeric value, after
// delay milliseconds when delay is positive. A positive pulseWidth restores
// the inverse level that long after the change.
type DigitalOutput struct {
	engine.BaseOperation
	env    *Env
	handle *iothread.Handle

	channel    int
	delay      int
	pulseWidth int
}

func NewDigitalOutput(name string, env *Env) (*DigitalOutput, error) {
	d := &DigitalOutput{BaseOperation: engine.NewBaseOperation(name), env: env}
	if _, err := d.AddInput("trigger", variant.ScalarKinds); err != nil {
		return nil, err
	}
	d.DeclareProperty(engine.PropertyDecl{Name: "channel", Accepts: intKinds, Default: variant.Int64(0)})
	d.DeclareProperty(engine.PropertyDecl{Name: "delay", Accepts: intKinds, Default: variant.Int64(0),
		Doc: "milliseconds between trigger and output change"})
	d.DeclareProperty(engine.PropertyDecl{Name: "pulseWidth", Accepts: intKinds, Default: variant.Int64(0),
		Doc: "pulse length in milliseconds; 0 leaves the level set"})
	return d, nil
}

func (d *DigitalOutput) Check(reset bool) error {
	if err := d.BaseOperation.Check(reset); err != nil {
		return err
	}
	var err error
	if d.channel, err = intProperty(&d.BaseOperation, "channel"); err != nil {
		return err
	}
	if d.channel < 0 {
		return rangeError(&d.BaseOperation, "channel", "%d is negative", d.channel)
	}
	if d.delay, err = intProperty(&d.BaseOperation, "delay"); err != nil {
		return err
	}
	if d.pulseWidth, err = intProperty(&d.BaseOperation, "pulseWidth"); err != nil {
		return err
	}
	if d.delay < 0 || d.pulseWidth < 0 {
		return rangeError(&d.BaseOperation, "delay", "delay and pulseWidth must not be negative")
	}
	if d.handle == nil {
		if d.handle, err = acquire(&d.BaseOperation, d.env); err != nil {
			return err
		}
	}
	return nil
}

func (d *DigitalOutput) Process(_ context.Context, r *engine.Round) error {
	value, err := variant.ToFloat64(r.Read("trigger"))
	if err != nil {
		return err
	}
	if d.delay == 0 {
		return d.handle.SendSignal(d.channel, value, -1, 0, d.pulseWidth)
	}
	at := d.env.IO.Now().Add(d.delay)
	return d.handle.SendSignal(d.channel, value, at.Day, at.Msecs, d.pulseWidth)
}

// Close flushes pending signals and releases the scheduler reference.
func (d *DigitalOutput) Close() error {
	if d.handle != nil {
		d.handle.Release()
		d.handle = nil
	}
	return nil
}

// DigitalInput is a source that emits a Bool for every edge seen on a
// polled board input channel. With maxEdges set it finishes after that
// many edges.
type DigitalInput struct {
	engine.BaseOperation
	env    *Env
	handle *iothread.Handle
	cancel func()

	channel  int
	maxEdges int

	mu      sync.Mutex
	edges   []bool
	emitted int
}

func NewDigitalInput(name string, env *Env) (*DigitalInput, error) {
	d := &DigitalInput{BaseOperation: engine.NewBaseOperation(name), env: env}
	if _, err := d.AddOutput("edge"); err != nil {
		return nil, err
	}
	d.DeclareProperty(engine.PropertyDecl{Name: "channel", Accepts: intKinds, Default: variant.Int64(0)})
	d.DeclareProperty(engine.PropertyDecl{Name: "maxEdges", Accepts: intKinds, Default: variant.Int64(0),
		Doc: "finish after this many edges; 0 runs until stopped"})
	return d, nil
}

func (d *DigitalInput) Check(reset bool) error {
	if err := d.BaseOperation.Check(reset); err != nil {
		return err
	}
	channel, err := intProperty(&d.BaseOperation, "channel")
	if err != nil {
		return err
	}
	if channel < 0 {
		return rangeError(&d.BaseOperation, "channel", "%d is negative", channel)
	}
	if d.maxEdges, err = intProperty(&d.BaseOperation, "maxEdges"); err != nil {
		return err
	}
	if d.handle != nil && channel != d.channel {
		d.Close()
	}
	d.channel = channel
	if d.handle == nil {
		if d.handle, err = acquire(&d.BaseOperation, d.env); err != nil {
			return err
		}
		d.cancel = d.env.subscribe(channel, d.push)
		if err := d.handle.AddPollingInput(channel); err != nil {
			d.Close()
			return &engine.ConfigError{Operation: d.Name(), Field: "channel", Err: err}
		}
	}
	if reset {
		d.mu.Lock()
		d.edges, d.emitted = nil, 0
		d.mu.Unlock()
	}
	return nil
}

func (d *DigitalInput) push(high bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edges = append(d.edges, high)
}

func (d *DigitalInput) Process(_ context.Context, r *engine.Round) error {
	d.mu.Lock()
	if d.maxEdges > 0 && d.emitted >= d.maxEdges {
		d.mu.Unlock()
		return engine.ErrSourceDone
	}
	if len(d.edges) == 0 {
		d.mu.Unlock()
		return nil
	}
	high := d.edges[0]
	d.edges = d.edges[1:]
	d.emitted++
	d.mu.Unlock()
	return r.Emit("edge", variant.Bool(high))
}

// Close stops polling and releases the scheduler reference.
func (d *DigitalInput) Close() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.handle != nil {
		d.handle.RemovePollingInput(d.channel)
		d.handle.Release()
		d.handle = nil
	}
	return nil
}
