package socket

import (
	"slices"

	"github.com/roach88/into/internal/variant"
)

// Listener is told about connection changes on an Output.
type Listener interface {
	InputConnected(in *Input)
	InputDisconnected(in *Input)
}

// Output is the sending end of a connection.
//
// Objects go through a FIFO. The head object carries one completion flag per
// connected input; it leaves the FIFO only once every input has accepted it,
// so each receiver sees each object exactly once and in emission order.
type Output struct {
	name      string
	inputs    []*Input
	listeners []Listener
	pending   []variant.Variant
	delivered []bool
	observer  func(variant.Variant)
}

// NewOutput creates an unconnected output.
func NewOutput(name string) *Output {
	return &Output{name: name}
}

// Name returns the socket name, unique within its operation.
func (o *Output) Name() string { return o.name }

// Inputs returns the connected inputs in connection order.
func (o *Output) Inputs() []*Input { return slices.Clone(o.inputs) }

// IsConnected reports whether at least one input is connected.
func (o *Output) IsConnected() bool { return len(o.inputs) > 0 }

// ConnectInput is shorthand for in.ConnectOutput(o).
func (o *Output) ConnectInput(in *Input) { in.ConnectOutput(o) }

// DisconnectAll removes every connected input.
func (o *Output) DisconnectAll() {
	for len(o.inputs) > 0 {
		o.inputs[len(o.inputs)-1].DisconnectOutput()
	}
}

// AddListener registers l for connection changes.
func (o *Output) AddListener(l Listener) {
	o.listeners = append(o.listeners, l)
}

// SetObserver installs a hook that sees every accepted emission, markers
// included. Used for trace recording.
func (o *Output) SetObserver(fn func(variant.Variant)) { o.observer = fn }

func (o *Output) inputConnected(in *Input) {
	o.inputs = append(o.inputs, in)
	o.reset()
	for _, l := range o.listeners {
		l.InputConnected(in)
	}
}

func (o *Output) inputDisconnected(in *Input) {
	if i := slices.Index(o.inputs, in); i >= 0 {
		o.inputs = slices.Delete(o.inputs, i, i+1)
	}
	o.reset()
	for _, l := range o.listeners {
		l.InputDisconnected(in)
	}
}

// reset drops in-flight objects after a topology change.
func (o *Output) reset() {
	clear(o.pending)
	o.pending = o.pending[:0]
	o.delivered = make([]bool, len(o.inputs))
}

// Emit validates obj against every effective receiver and delivers it
// synchronously in connection order. Receivers that refuse are retried by
// Flush. With no connected inputs Emit is a no-op.
func (o *Output) Emit(obj variant.Variant) error {
	if !variant.IsValid(obj) {
		return ErrInvalidObject
	}
	k := obj.Kind()
	for _, in := range o.inputs {
		if bad, err := checkKind(in, k, 0); err != nil {
			return &DeliveryError{Output: o.name, Input: bad.name, Err: err}
		}
	}
	if o.observer != nil {
		o.observer(obj)
	}
	if len(o.inputs) == 0 {
		return nil
	}
	o.pending = append(o.pending, obj)
	o.Flush()
	return nil
}

// StartDelay opens a delayed group on this output.
func (o *Output) StartDelay() error {
	return o.Emit(variant.Control{Code: variant.StartDelay})
}

// EndDelay closes the delayed group opened by StartDelay.
func (o *Output) EndDelay() error {
	return o.Emit(variant.Control{Code: variant.EndDelay})
}

// EmitStop tells every receiver that no more objects will follow.
func (o *Output) EmitStop() error {
	return o.Emit(variant.Control{Code: variant.Stop})
}

// Flush retries delivery of pending objects. Returns true when nothing is
// left pending.
func (o *Output) Flush() bool {
	for len(o.pending) > 0 {
		if !o.deliverHead() {
			return false
		}
		o.pending[0] = nil
		o.pending = o.pending[1:]
	}
	return true
}

// Discard drops pending objects without delivering them.
func (o *Output) Discard() { o.reset() }

// Pending returns the number of objects not yet accepted by every input.
func (o *Output) Pending() int { return len(o.pending) }

func (o *Output) deliverHead() bool {
	obj := o.pending[0]
	all := true
	for i, in := range o.inputs {
		if !o.delivered[i] {
			o.delivered[i] = in.receive(obj)
		}
		all = all && o.delivered[i]
	}
	if all {
		clear(o.delivered)
	}
	return all
}
