package recordsync

import (
	"fmt"
	"slices"
)

// State is the lifecycle state of a session.
type State int

// Session lifecycle states.
const (
	StateIdle State = iota
	StateConnecting
	StateResolvingIdentity
	StateNeedsIdentity
	StateLoading
	StateReady
	StateSubmitting
	StateDone
	StateSubmitError
	StateBridgeUnavailable
	StateLoadFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateConnecting:        "connecting",
	StateResolvingIdentity: "resolving_identity",
	StateNeedsIdentity:     "needs_identity",
	StateLoading:           "loading",
	StateReady:             "ready",
	StateSubmitting:        "submitting",
	StateDone:              "done",
	StateSubmitError:       "submit_error",
	StateBridgeUnavailable: "bridge_unavailable",
	StateLoadFailed:        "load_failed",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return StateIdle, fmt.Errorf("unknown state %q", name)
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateIdle:              {StateConnecting},
	StateConnecting:        {StateResolvingIdentity, StateBridgeUnavailable, StateIdle},
	StateResolvingIdentity: {StateLoading, StateNeedsIdentity, StateIdle},
	StateNeedsIdentity:     {StateResolvingIdentity, StateLoading},
	StateLoading:           {StateReady, StateLoadFailed},
	StateReady:             {StateSubmitting, StateLoading},
	StateSubmitting:        {StateDone, StateSubmitError},
	StateSubmitError:       {StateSubmitting, StateLoading},
	StateBridgeUnavailable: {StateConnecting},
	StateLoadFailed:        {StateLoading},
	StateDone:              nil,
}

// CanTransition reports whether to is reachable from s in one step.
func (s State) CanTransition(to State) bool {
	return slices.Contains(transitions[s], to)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Failed reports whether the state is a failure the user can act on.
func (s State) Failed() bool {
	switch s {
	case StateBridgeUnavailable, StateLoadFailed, StateSubmitError, StateNeedsIdentity:
		return true
	}
	return false
}

// Editable reports whether bindings accept edits.
func (s State) Editable() bool {
	return s == StateReady || s == StateSubmitError
}

// Booting reports whether the session is still on its way to Ready.
func (s State) Booting() bool {
	switch s {
	case StateConnecting, StateResolvingIdentity, StateLoading:
		return true
	}
	return false
}
