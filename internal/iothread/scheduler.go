package iothread

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// DefaultTick is the polling period of the scheduler goroutine.
const DefaultTick = 10 * time.Millisecond

// ErrInvalidChannel is returned for negative channel numbers.
var ErrInvalidChannel = errors.New("iothread: invalid channel")

// Clock supplies wall-clock time. time.Now is used by default.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// entry and pollEntry remember the handle that registered them, so one
// driver can be shared by several handles.
type entry struct {
	owner *Handle
	sig   Signal
}

type pollEntry struct {
	owner   *Handle
	channel int
}

// Scheduler is the shared I/O thread.
type Scheduler struct {
	mu       sync.Mutex
	waiting  []entry // sorted by At, stable for equal timestamps
	polling  []pollEntry
	deferred []entry // sent from inside Step; merged before Step returns
	refs     int
	stop     chan struct{}
	done     chan struct{}

	// stepGID is the goroutine currently inside Step, or 0.
	stepGID atomic.Int64

	tick     time.Duration
	clock    Clock
	observer func(Signal)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets the polling period. A zero or negative tick starts no
// goroutine; the owner drives the scheduler by calling Step.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		s.tick = d
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithObserver receives every signal as it is applied.
func WithObserver(fn func(Signal)) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

// New returns an idle scheduler. Its goroutine starts with the first
// Acquire.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{tick: DefaultTick, clock: systemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire registers a driver and returns its handle.
func (s *Scheduler) Acquire(d Driver) *Handle {
	s.withLock(func() {
		s.refs++
		if s.refs == 1 && s.tick > 0 {
			s.stop = make(chan struct{})
			s.done = make(chan struct{})
			go s.run(s.stop, s.done)
			slog.Debug("io scheduler started", "tick", s.tick)
		}
	})
	return &Handle{s: s, driver: d}
}

// Refs returns the number of live handles.
func (s *Scheduler) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// release applies h's waiting signals, drops its polling inputs and its
// reference. Other handles on the same driver are untouched. The last
// reference stops the goroutine and waits for it to exit, unless called
// from that goroutine.
func (s *Scheduler) release(h *Handle) {
	s.flush(func(e entry) bool { return e.owner == h })

	var done chan struct{}
	s.withLock(func() {
		s.polling = slices.DeleteFunc(s.polling, func(p pollEntry) bool { return p.owner == h })
		s.refs--
		if s.refs == 0 && s.stop != nil {
			close(s.stop)
			done = s.done
			s.stop, s.done = nil, nil
		}
	})

	if done != nil && !s.inStep() {
		<-done
		slog.Debug("io scheduler stopped")
	}
}

func (s *Scheduler) run(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.Step()
		}
	}
}

func (s *Scheduler) inStep() bool {
	return s.stepGID.Load() == goid.Get()
}

// withLock runs fn under s.mu, or directly when the caller is already
// inside Step on this goroutine.
func (s *Scheduler) withLock(fn func()) {
	if s.inStep() {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Scheduler) now() Timestamp {
	return TimestampOf(s.clock.Now())
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() Timestamp { return s.now() }

// Step polls every registered input and applies every due signal. The
// scheduler goroutine calls it on each tick.
func (s *Scheduler) Step() {
	s.mu.Lock()
	s.stepGID.Store(goid.Get())
	type polled struct {
		d  Driver
		ch int
	}
	seen := make(map[polled]bool, len(s.polling))
	for _, p := range slices.Clone(s.polling) {
		key := polled{p.owner.driver, p.channel}
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := p.owner.driver.CheckInputState(p.channel); err != nil {
			slog.Warn("input poll failed", "channel", p.channel, "error", err)
		}
	}
	s.mergeDeferred()

	now := s.now()
	var applied []Signal
	for len(s.waiting) > 0 && !now.Before(s.waiting[0].sig.At) {
		e := s.waiting[0]
		s.waiting = s.waiting[1:]
		applied = append(applied, s.apply(e, now))
		s.mergeDeferred()
	}
	s.stepGID.Store(0)
	s.mu.Unlock()

	s.notify(applied...)
}

// apply hands the signal to its driver and queues the pulse inverse.
// Caller holds s.mu.
func (s *Scheduler) apply(e entry, now Timestamp) Signal {
	if err := e.owner.driver.ChangeOutputState(e.sig.Channel, e.sig.Value); err != nil {
		slog.Error("output change failed", "channel", e.sig.Channel, "value", e.sig.Value, "error", err)
	}
	e.sig.State = Applied
	if e.sig.PulseWidth > 0 {
		s.insert(entry{owner: e.owner, sig: Signal{
			Channel: e.sig.Channel,
			Value:   inverse(e.sig.Value),
			At:      now.Add(e.sig.PulseWidth),
		}})
	}
	return e.sig
}

// insert keeps waiting sorted; equal timestamps keep submission order.
// Caller holds s.mu.
func (s *Scheduler) insert(e entry) {
	i, _ := slices.BinarySearchFunc(s.waiting, e.sig.At, func(w entry, at Timestamp) int {
		if w.sig.At.Compare(at) <= 0 {
			return -1
		}
		return 1
	})
	s.waiting = slices.Insert(s.waiting, i, e)
}

func (s *Scheduler) mergeDeferred() {
	for _, e := range s.deferred {
		s.insert(e)
	}
	s.deferred = s.deferred[:0]
}

func (s *Scheduler) notify(signals ...Signal) {
	if s.observer == nil {
		return
	}
	for _, sig := range signals {
		s.observer(sig)
	}
}

// sendSignal implements Handle.SendSignal.
func (s *Scheduler) sendSignal(h *Handle, channel int, value float64, day, msecs, pulseWidth int) error {
	if channel < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	sig := Signal{Channel: channel, Value: value, PulseWidth: max(pulseWidth, 0)}

	if s.inStep() {
		// Called back from a driver while Step holds the lock.
		if day < 0 {
			sig.At = s.now()
		} else {
			sig.At = Timestamp{Day: day, Msecs: msecs}.Normalize()
		}
		s.deferred = append(s.deferred, entry{owner: h, sig: sig})
		return nil
	}

	s.mu.Lock()
	if day >= 0 {
		sig.At = Timestamp{Day: day, Msecs: msecs}.Normalize()
		s.insert(entry{owner: h, sig: sig})
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	sig.At = now
	err := h.driver.ChangeOutputState(channel, value)
	sig.State = Applied
	if pulseWidth > 0 {
		s.insert(entry{owner: h, sig: Signal{Channel: channel, Value: inverse(value), At: now.Add(pulseWidth)}})
	}
	s.mu.Unlock()

	s.notify(sig)
	if err != nil {
		slog.Error("output change failed", "channel", channel, "value", value, "error", err)
		return err
	}
	return nil
}

// Waiting returns a copy of the queued signals in schedule order.
func (s *Scheduler) Waiting() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Signal, len(s.waiting))
	for i, e := range s.waiting {
		out[i] = e.sig
	}
	return out
}

// RemoveOutputList applies every signal still waiting for d right away and
// drops it from the queue, so no channel of d is left pending. Pulse
// inverses are applied too. It covers every handle on d.
func (s *Scheduler) RemoveOutputList(d Driver) {
	s.flush(func(e entry) bool { return e.owner.driver == d })
}

// flush applies and removes the waiting signals selected by match.
func (s *Scheduler) flush(match func(entry) bool) {
	var applied []Signal
	s.withLock(func() {
		now := s.now()
		var pending []entry
		take := func(e entry) bool {
			if match(e) {
				pending = append(pending, e)
				return true
			}
			return false
		}
		s.waiting = slices.DeleteFunc(s.waiting, take)
		s.deferred = slices.DeleteFunc(s.deferred, take)
		for len(pending) > 0 {
			e := pending[0]
			pending = pending[1:]
			if err := e.owner.driver.ChangeOutputState(e.sig.Channel, e.sig.Value); err != nil {
				slog.Error("output change failed", "channel", e.sig.Channel, "error", err)
			}
			e.sig.State = Applied
			applied = append(applied, e.sig)
			if e.sig.PulseWidth > 0 {
				pending = append(pending, entry{owner: e.owner, sig: Signal{
					Channel: e.sig.Channel,
					Value:   inverse(e.sig.Value),
					At:      now,
				}})
			}
		}
	})
	s.notify(applied...)
}

func (s *Scheduler) addPollingInput(h *Handle, channel int) error {
	if channel < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	p := pollEntry{owner: h, channel: channel}
	s.withLock(func() {
		if !slices.Contains(s.polling, p) {
			s.polling = append(s.polling, p)
		}
	})
	return nil
}

func (s *Scheduler) removePollingInput(h *Handle, channel int) {
	s.withLock(func() {
		s.polling = slices.DeleteFunc(s.polling, func(p pollEntry) bool {
			return p.owner == h && p.channel == channel
		})
	})
}

// PollingInputs returns the number of registered polling inputs.
func (s *Scheduler) PollingInputs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polling)
}

// Handle is a driver's shared reference to the scheduler.
type Handle struct {
	s       *Scheduler
	driver  Driver
	release sync.Once
}

// SendSignal requests that channel change to value. A negative day applies
// the change immediately; otherwise it waits until (day, msecs), with msecs
// past midnight rolling into following days. A positive pulseWidth, in
// milliseconds, queues the inverse change that long after application.
func (h *Handle) SendSignal(channel int, value float64, day, msecs, pulseWidth int) error {
	return h.s.sendSignal(h, channel, value, day, msecs, pulseWidth)
}

// AddPollingInput registers channel for edge checks on every tick.
func (h *Handle) AddPollingInput(channel int) error {
	return h.s.addPollingInput(h, channel)
}

// RemovePollingInput stops polling channel.
func (h *Handle) RemovePollingInput(channel int) {
	h.s.removePollingInput(h, channel)
}

// Release applies the signals still waiting from this handle, stops its
// polling inputs and drops the reference. Only the first call has an
// effect.
func (h *Handle) Release() {
	h.release.Do(func() { h.s.release(h) })
}
