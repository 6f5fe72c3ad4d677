package ops

import (
	"slices"
	"sync"

	"github.com/roach88/into/internal/iothread"
)

// Board is an I/O driver that reports input edges through a callback.
type Board interface {
	iothread.Driver
	OnEdge(fn iothread.EdgeFunc)
}

// Waker is woken when an external event makes a source ready.
// *engine.Engine implements it.
type Waker interface {
	Wake()
}

// Env holds the shared resources digital operations need. A nil IO or
// Board disables them: their Check reports a configuration error.
type Env struct {
	IO    *iothread.Scheduler
	Board Board

	mu    sync.Mutex
	waker Waker
	subs  []*subscriber
}

type subscriber struct {
	channel int
	fn      func(high bool)
}

// NewEnv wires board edges to the digital inputs created from this Env.
func NewEnv(io *iothread.Scheduler, board Board) *Env {
	env := &Env{IO: io, Board: board}
	if board != nil {
		board.OnEdge(env.dispatch)
	}
	return env
}

// BindWaker makes edge arrivals wake w.
func (env *Env) BindWaker(w Waker) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.waker = w
}

// subscribe routes edges of channel to fn until the returned cancel runs.
func (env *Env) subscribe(channel int, fn func(high bool)) (cancel func()) {
	sub := &subscriber{channel: channel, fn: fn}
	env.mu.Lock()
	env.subs = append(env.subs, sub)
	env.mu.Unlock()
	return func() {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.subs = slices.DeleteFunc(env.subs, func(s *subscriber) bool { return s == sub })
	}
}

func (env *Env) dispatch(channel int, high bool) {
	env.mu.Lock()
	var fns []func(bool)
	for _, sub := range env.subs {
		if sub.channel == channel {
			fns = append(fns, sub.fn)
		}
	}
	w := env.waker
	env.mu.Unlock()
	for _, fn := range fns {
		fn(high)
	}
	if w != nil && len(fns) > 0 {
		w.Wake()
	}
}
