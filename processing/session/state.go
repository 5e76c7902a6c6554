package session

import (
	"errors"
	"fmt"
)

type State int

const (
	Idle State = iota
	Playing
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether a source handle is held in this state.
func (s State) Active() bool {
	return s == Playing || s == Paused
}

type Action string

const (
	ActionOpen   Action = "open"
	ActionToggle Action = "pause/resume"
	ActionStop   Action = "stop"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidThreshold  = errors.New("skip threshold must be at least 1")
)

// transition returns the state reached by applying a in s.
func transition(s State, a Action) (State, error) {
	switch a {
	case ActionOpen:
		return Playing, nil
	case ActionToggle:
		switch s {
		case Playing:
			return Paused, nil
		case Paused:
			return Playing, nil
		}
	case ActionStop:
		if s.Active() {
			return Stopped, nil
		}
	}
	return s, fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, a, s)
}
