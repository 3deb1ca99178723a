package plugin

import (
	"fmt"
)

// State is the run state of an App. Transitions are driven only by the
// lifecycle driver: Building -> Ready -> Running -> ShuttingDown -> Stopped.
type State int32

const (
	StateBuilding State = iota
	StateReady
	StateRunning
	StateShuttingDown
	StateStopped
)

var stateNames = map[State]string{
	StateBuilding:     "Building",
	StateReady:        "Ready",
	StateRunning:      "Running",
	StateShuttingDown: "ShuttingDown",
	StateStopped:      "Stopped",
}

// String returns the human-readable name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
