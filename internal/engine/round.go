package engine

import (
	"github.com/roach88/into/internal/socket"
	"github.com/roach88/into/internal/variant"
)

// NoGroup is the group of rounds that are not tied to a sync group, such
// as source calls and Finish.
const NoGroup = -1

// SyncEventType identifies a sync group boundary.
type SyncEventType uint8

const (
	// StartInput marks the beginning of a delayed unit on a group.
	StartInput SyncEventType = iota + 1
	// EndInput marks the end of a delayed unit on a group.
	EndInput
)

func (t SyncEventType) String() string {
	switch t {
	case StartInput:
		return "start_input"
	case EndInput:
		return "end_input"
	default:
		return "unknown"
	}
}

// SyncEvent is dispatched when control markers line up across the inputs
// of a group. It is a value and must not be retained.
type SyncEvent struct {
	Type  SyncEventType
	Group int
}

// Round is the context of a single Process, SyncEvent or Finish call.
type Round struct {
	n        *node
	group    int
	deferred bool
	emitted  int
}

// Group returns the active sync group, or NoGroup.
func (r *Round) Group() int { return r.group }

// Read returns the object at the head of the named input when it belongs to
// the active group, or variant.Invalid{} otherwise. The object stays queued
// until the call returns.
func (r *Round) Read(input string) variant.Variant {
	in := r.n.op.Base().Input(input)
	if in == nil || in.GroupID() != r.group {
		return variant.Invalid{}
	}
	obj := in.First()
	if obj == nil || obj.Kind() == variant.KindControl {
		return variant.Invalid{}
	}
	return obj
}

// Emit sends v on the named output.
func (r *Round) Emit(output string, v variant.Variant) error {
	out, err := r.output(output)
	if err != nil {
		return err
	}
	if err := out.Emit(v); err != nil {
		return err
	}
	r.emitted++
	return nil
}

// StartDelay opens a delayed unit on the named output.
func (r *Round) StartDelay(output string) error {
	return r.Emit(output, variant.Control{Code: variant.StartDelay})
}

// EndDelay closes the delayed unit on the named output.
func (r *Round) EndDelay(output string) error {
	return r.Emit(output, variant.Control{Code: variant.EndDelay})
}

// Defer leaves the inputs of the active group queued. Process will be
// called again for the same objects in a later round.
func (r *Round) Defer() { r.deferred = true }

func (r *Round) output(name string) (*socket.Output, error) {
	out := r.n.op.Base().Output(name)
	if out == nil {
		return nil, configError(r.n.op.Name(), name, ErrUnknownSocket)
	}
	return out, nil
}
