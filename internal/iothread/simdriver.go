package iothread

import (
	"fmt"
	"sync"
)

// Change records one output transition seen by a SimDriver.
type Change struct {
	Channel int
	Value   float64
}

// EdgeFunc is called when a polled input changes level.
type EdgeFunc func(channel int, high bool)

// SimDriver is an in-memory I/O board for tests and dry runs. Outputs
// record every change; inputs are toggled with SetInput and reported as
// edges on the next poll.
type SimDriver struct {
	mu       sync.Mutex
	outputs  []float64
	inputs   []bool
	polled   []bool
	changes  []Change
	onEdge   EdgeFunc
	failWith error
}

// NewSimDriver returns a board with the given number of channels.
func NewSimDriver(outputs, inputs int) *SimDriver {
	return &SimDriver{
		outputs: make([]float64, outputs),
		inputs:  make([]bool, inputs),
		polled:  make([]bool, inputs),
	}
}

// OnEdge installs the edge callback. It runs on the polling goroutine and
// may send signals through the driver's handle.
func (d *SimDriver) OnEdge(fn EdgeFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEdge = fn
}

// FailOutputs makes every following ChangeOutputState return err. Nil
// restores normal operation.
func (d *SimDriver) FailOutputs(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWith = err
}

func (d *SimDriver) ChangeOutputState(channel int, value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if channel < 0 || channel >= len(d.outputs) {
		return fmt.Errorf("sim: output channel %d out of range [0,%d)", channel, len(d.outputs))
	}
	if d.failWith != nil {
		return d.failWith
	}
	d.outputs[channel] = value
	d.changes = append(d.changes, Change{Channel: channel, Value: value})
	return nil
}

func (d *SimDriver) CheckInputState(channel int) error {
	d.mu.Lock()
	if channel < 0 || channel >= len(d.inputs) {
		d.mu.Unlock()
		return fmt.Errorf("sim: input channel %d out of range [0,%d)", channel, len(d.inputs))
	}
	level := d.inputs[channel]
	changed := level != d.polled[channel]
	d.polled[channel] = level
	fn := d.onEdge
	d.mu.Unlock()

	if changed && fn != nil {
		fn(channel, level)
	}
	return nil
}

// SetInput sets the level of an input channel.
func (d *SimDriver) SetInput(channel int, high bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if channel >= 0 && channel < len(d.inputs) {
		d.inputs[channel] = high
	}
}

// Output returns the current value of an output channel.
func (d *SimDriver) Output(channel int) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if channel < 0 || channel >= len(d.outputs) {
		return 0
	}
	return d.outputs[channel]
}

// Changes returns a copy of every output transition so far.
func (d *SimDriver) Changes() []Change {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Change(nil), d.changes...)
}
