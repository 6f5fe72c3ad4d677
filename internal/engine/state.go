package engine

import "fmt"

// State is the lifecycle state of an engine.
type State uint8

const (
	Stopped State = iota
	Running
	Pausing
	Paused
	Stopping
)

var stateNames = [...]string{
	Stopped:  "stopped",
	Running:  "running",
	Pausing:  "pausing",
	Paused:   "paused",
	Stopping: "stopping",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

var transitions = map[State][]State{
	Stopped:  {Running},
	Running:  {Pausing, Stopping, Stopped},
	Pausing:  {Paused, Stopping, Stopped},
	Paused:   {Running, Stopped},
	Stopping: {Stopped},
}

// transition validates a state change.
func transition(from, to State) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
