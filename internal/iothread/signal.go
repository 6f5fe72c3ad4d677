package iothread

import "fmt"

// SignalState is the lifecycle of a queued output change.
type SignalState uint8

const (
	// Waiting signals are queued until their timestamp passes.
	Waiting SignalState = iota
	// Applied signals have been handed to the driver.
	Applied
)

func (s SignalState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Applied:
		return "applied"
	default:
		return fmt.Sprintf("signal_state(%d)", s)
	}
}

// Signal is a requested change of one physical output.
type Signal struct {
	Channel int
	Value   float64
	At      Timestamp

	// PulseWidth, in milliseconds, requests the inverse transition that
	// long after the signal is applied. Zero means no pulse.
	PulseWidth int

	State SignalState
}

// inverse is the value a pulse returns to.
func inverse(v float64) float64 {
	if v != 0 {
		return 0
	}
	return 1
}

// Driver is the hardware side of the scheduler.
//
// ChangeOutputState sets an output channel. CheckInputState reads an input
// channel registered for polling and reports edges through whatever
// callback the driver exposes; it may call back into its Handle.
//
// Errors are logged by the scheduler and never retried.
type Driver interface {
	ChangeOutputState(channel int, value float64) error
	CheckInputState(channel int) error
}
