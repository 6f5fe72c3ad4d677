package socket

import (
	"github.com/roach88/into/internal/variant"
)

// Proxy forwards objects arriving on its Input half to every input connected
// to its Output half. It is how a compound operation exposes internal
// sockets.
//
// An object counts as received only when every target has accepted it.
// Targets that refuse are offered the same object again on the next
// TryToReceive; targets that already accepted it are skipped.
type Proxy struct {
	in        *Input
	out       *Output
	completed []bool
}

// NewProxy creates a proxy whose halves share name.
func NewProxy(name string) *Proxy {
	p := &Proxy{
		in:  NewInput(name, variant.AnyKind),
		out: NewOutput(name),
	}
	p.in.SetController(p)
	p.out.AddListener(p)
	return p
}

// Name returns the proxy name.
func (p *Proxy) Name() string { return p.in.name }

// Input returns the receiving half. External outputs connect here.
func (p *Proxy) Input() *Input { return p.in }

// Output returns the forwarding half. Targets connect here.
func (p *Proxy) Output() *Output { return p.out }

// Targets returns the inputs the proxy forwards to.
func (p *Proxy) Targets() []*Input { return p.out.Inputs() }

// TryToReceive offers obj to every target that has not accepted it in the
// current round. It returns true once all targets have accepted, and then
// clears the completion flags for the next object.
func (p *Proxy) TryToReceive(_ *Input, obj variant.Variant) bool {
	if len(p.completed) == 0 {
		return true
	}
	all := true
	for i, target := range p.out.inputs {
		if !p.completed[i] {
			p.completed[i] = target.receive(obj)
		}
		all = all && p.completed[i]
	}
	if !all {
		return false
	}
	if p.out.observer != nil {
		p.out.observer(obj)
	}
	clear(p.completed)
	return true
}

// InputConnected implements Listener.
func (p *Proxy) InputConnected(*Input) { p.reset() }

// InputDisconnected implements Listener.
func (p *Proxy) InputDisconnected(*Input) { p.reset() }

// reset sizes the completion flags to the current fan-out. An object that
// was partially delivered before the topology change is abandoned.
func (p *Proxy) reset() {
	n := len(p.out.inputs)
	if n == 0 {
		p.completed = nil
		return
	}
	p.completed = make([]bool, n)
}
