package socket

import (
	"github.com/roach88/into/internal/variant"
)

// Controller receives objects on behalf of an input. Returning false means
// the object was not accepted and will be offered again later.
type Controller interface {
	TryToReceive(in *Input, obj variant.Variant) bool
}

// Input is the receiving end of a connection.
type Input struct {
	name       string
	accepts    variant.KindSet
	output     *Output
	controller Controller
	group      int
	optional   bool
	capacity   int // 0 means unbounded
	queue      []variant.Variant
}

// NewInput creates an unconnected input accepting the given kinds.
func NewInput(name string, accepts variant.KindSet) *Input {
	return &Input{name: name, accepts: accepts}
}

// Name returns the socket name, unique within its operation.
func (in *Input) Name() string { return in.name }

// Accepts returns the kinds this input can handle.
func (in *Input) Accepts() variant.KindSet { return in.accepts }

// GroupID returns the synchronization group of the input. Default 0.
func (in *Input) GroupID() int { return in.group }

// SetGroupID assigns the synchronization group.
func (in *Input) SetGroupID(id int) { in.group = id }

// IsOptional reports whether the input may be left unconnected.
func (in *Input) IsOptional() bool { return in.optional }

// SetOptional marks the input as optional.
func (in *Input) SetOptional(optional bool) { in.optional = optional }

// Capacity returns the queue limit; 0 means unbounded.
func (in *Input) Capacity() int { return in.capacity }

// SetCapacity limits the queue. Objects offered to a full queue are refused
// and retried by the sender.
func (in *Input) SetCapacity(n int) { in.capacity = max(n, 0) }

// Controller returns the controller, or nil when the input queues directly.
func (in *Input) Controller() Controller { return in.controller }

// SetController installs the object receiver for this input.
func (in *Input) SetController(c Controller) { in.controller = c }

// ConnectedOutput returns the output feeding this input, or nil.
func (in *Input) ConnectedOutput() *Output { return in.output }

// IsConnected reports whether an output feeds this input.
func (in *Input) IsConnected() bool { return in.output != nil }

// ConnectOutput connects o to this input, replacing any existing
// connection. Connecting to the current output is a no-op. A nil o
// disconnects.
func (in *Input) ConnectOutput(o *Output) {
	if in.output == o {
		return
	}
	in.DisconnectOutput()
	if o == nil {
		return
	}
	in.output = o
	o.inputConnected(in)
}

// DisconnectOutput removes the link in both directions. Safe to call when
// not connected.
func (in *Input) DisconnectOutput() {
	o := in.output
	if o == nil {
		return
	}
	in.output = nil
	o.inputDisconnected(in)
}

// receive hands obj to the controller, or queues it when there is none.
func (in *Input) receive(obj variant.Variant) bool {
	if in.controller != nil {
		return in.controller.TryToReceive(in, obj)
	}
	return in.Put(obj)
}

// CanPut reports whether the queue has room for another object.
func (in *Input) CanPut() bool {
	return in.capacity == 0 || len(in.queue) < in.capacity
}

// Put appends obj to the queue. Returns false when the queue is full.
func (in *Input) Put(obj variant.Variant) bool {
	if !in.CanPut() {
		return false
	}
	in.queue = append(in.queue, obj)
	return true
}

// First returns the head of the queue without removing it, or nil.
func (in *Input) First() variant.Variant {
	if len(in.queue) == 0 {
		return nil
	}
	return in.queue[0]
}

// Release removes and returns the head of the queue, or nil when empty.
func (in *Input) Release() variant.Variant {
	if len(in.queue) == 0 {
		return nil
	}
	obj := in.queue[0]
	in.queue[0] = nil
	if len(in.queue) == 1 {
		in.queue = in.queue[:0]
	} else {
		in.queue = in.queue[1:]
	}
	return obj
}

// QueueLen returns the number of queued objects.
func (in *Input) QueueLen() int { return len(in.queue) }

// Clear drops every queued object.
func (in *Input) Clear() {
	clear(in.queue)
	in.queue = in.queue[:0]
}

// maxProxyDepth bounds proxy chains when resolving effective receivers.
const maxProxyDepth = 32

// checkKind verifies that every effective receiver behind in accepts k.
// Proxies are transparent: their targets are checked instead.
func checkKind(in *Input, k variant.Kind, depth int) (*Input, error) {
	if p, ok := in.controller.(*Proxy); ok && depth < maxProxyDepth {
		for _, target := range p.out.inputs {
			if bad, err := checkKind(target, k, depth+1); err != nil {
				return bad, err
			}
		}
		return nil, nil
	}
	if !in.accepts.Accepts(k) {
		return in, &variant.TypeError{Expected: in.accepts, Got: k}
	}
	return nil, nil
}
