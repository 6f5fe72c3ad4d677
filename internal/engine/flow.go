package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/into/internal/socket"
	"github.com/roach88/into/internal/variant"
)

// node is the scheduler's view of one leaf operation.
type node struct {
	op       Operation
	inputs   []*socket.Input // inputs with a live upstream
	groups   []int           // distinct group IDs of inputs, ascending
	finished bool
	worker   *worker
}

// flush retries pending deliveries. blocked is true when an output still
// holds objects a downstream input refused.
func (n *node) flush() (progress, blocked bool) {
	for _, out := range n.op.Base().outputs {
		before := out.Pending()
		if !out.Flush() {
			blocked = true
		}
		if out.Pending() < before {
			progress = true
		}
	}
	return progress, blocked
}

func (n *node) groupInputs(g int) []*socket.Input {
	var ins []*socket.Input
	for _, in := range n.inputs {
		if in.GroupID() == g {
			ins = append(ins, in)
		}
	}
	return ins
}

func isStop(obj variant.Variant) bool {
	return variant.IsControl(obj, variant.Stop)
}

// call runs fn on the operation's worker when it has one.
func (n *node) call(fn func() error) error {
	if n.worker != nil {
		return n.worker.run(fn)
	}
	return fn()
}

// step gives one operation its turn in the current round.
func (e *Engine) step(ctx context.Context, n *node, draining bool) (bool, error) {
	progress, blocked := n.flush()
	if blocked || n.finished {
		return progress, nil
	}

	if len(n.inputs) == 0 {
		if draining {
			return true, e.finish(ctx, n)
		}
		r := &Round{n: n, group: NoGroup}
		err := n.call(func() error { return n.op.Process(ctx, r) })
		if errors.Is(err, ErrSourceDone) {
			return true, e.finish(ctx, n)
		}
		if err != nil {
			return progress, err
		}
		return progress || r.emitted > 0, nil
	}

	acted, err := e.dispatch(ctx, n)
	return progress || acted, err
}

// dispatch handles the lowest group with something at every head: markers
// become sync events, data becomes a Process call.
func (e *Engine) dispatch(ctx context.Context, n *node) (bool, error) {
	progress := false
	allStopped := true
	for _, g := range n.groups {
		ins := n.groupInputs(g)
		heads := make([]variant.Variant, len(ins))
		ready := true
		stops := 0
		for i, in := range ins {
			heads[i] = in.First()
			if heads[i] == nil {
				ready = false
			} else if isStop(heads[i]) {
				stops++
			}
		}
		if stops == len(ins) {
			continue
		}
		allStopped = false

		if stops > 0 {
			// A stream ended inside this group; whatever the other inputs
			// still carry can never be matched.
			for _, in := range ins {
				if head := in.First(); head != nil && !isStop(head) {
					in.Release()
					slog.Debug("dropping unmatched object",
						"operation", n.op.Name(), "input", in.Name())
					progress = true
				}
			}
			continue
		}
		if !ready {
			continue
		}

		ev, marker, err := syncEventOf(heads, g)
		if err != nil {
			return progress, err
		}
		if marker {
			for _, in := range ins {
				in.Release()
			}
			if sh, ok := n.op.(SyncHandler); ok {
				r := &Round{n: n, group: g}
				if err := n.call(func() error { return sh.SyncEvent(ctx, r, ev) }); err != nil {
					return true, err
				}
			}
			return true, nil
		}

		r := &Round{n: n, group: g}
		if err := n.call(func() error { return n.op.Process(ctx, r) }); err != nil {
			return progress, err
		}
		if r.deferred {
			progress = progress || r.emitted > 0
			continue
		}
		for _, in := range ins {
			in.Release()
		}
		return true, nil
	}

	if allStopped {
		return true, e.finish(ctx, n)
	}
	return progress, nil
}

// syncEventOf classifies the heads of a ready group. marker is false when
// every head is data.
func syncEventOf(heads []variant.Variant, group int) (ev SyncEvent, marker bool, err error) {
	var code variant.ControlCode
	controls := 0
	for _, h := range heads {
		c, ok := h.(variant.Control)
		if !ok {
			continue
		}
		if controls > 0 && c.Code != code {
			return SyncEvent{}, false, ErrSyncMismatch
		}
		code = c.Code
		controls++
	}
	switch {
	case controls == 0:
		return SyncEvent{}, false, nil
	case controls != len(heads):
		return SyncEvent{}, false, ErrSyncMismatch
	case code == variant.StartDelay:
		return SyncEvent{Type: StartInput, Group: group}, true, nil
	case code == variant.EndDelay:
		return SyncEvent{Type: EndInput, Group: group}, true, nil
	default:
		return SyncEvent{}, false, ErrSyncMismatch
	}
}

// finish runs the operation's Finisher, drops leftover input and emits Stop
// on every output.
func (e *Engine) finish(ctx context.Context, n *node) error {
	if f, ok := n.op.(Finisher); ok {
		r := &Round{n: n, group: NoGroup}
		if err := n.call(func() error { return f.Finish(ctx, r) }); err != nil {
			return err
		}
	}
	n.finished = true
	for _, in := range n.op.Base().inputs {
		in.Clear()
	}
	for _, out := range n.op.Base().outputs {
		if err := out.EmitStop(); err != nil {
			return err
		}
	}
	slog.Debug("operation finished", "operation", n.op.Name())
	return nil
}
