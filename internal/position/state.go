// internal/position/state.go
package position

import (
	"errors"
	"fmt"
)

// State is a step of the position lifecycle.
type State int

const (
	StateDetected State = iota
	StateBuying
	StateTracking
	StateSelling
	StateSold
	StateFailed
)

var ErrInvalidTransition = errors.New("invalid state transition")

var stateNames = map[State]string{
	StateDetected: "detected",
	StateBuying:   "buying",
	StateTracking: "tracking",
	StateSelling:  "selling",
	StateSold:     "sold",
	StateFailed:   "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSold || s == StateFailed
}

// allowed edges of the lifecycle graph
var transitions = map[State][]State{
	StateDetected: {StateBuying},
	StateBuying:   {StateTracking, StateFailed},
	StateTracking: {StateSelling},
	StateSelling:  {StateSold, StateTracking, StateFailed},
}

// CanTransition reports whether s -> to is an edge of the lifecycle graph.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
