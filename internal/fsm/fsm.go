// Package fsm defines the practice session phase machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateEvaluating State = "evaluating"
	StateFeedback   State = "feedback"
	StateCompleted  State = "completed"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventCancel    Event = "cancel"
	EventEvaluated Event = "evaluated"
	EventComplete  Event = "complete"
	EventAdvance   Event = "advance"
	EventFail      Event = "fail"
	EventRedo      Event = "redo"
)

// Transition returns the next state for event, or an error when event is not valid in current.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle, StateRecording, StateEvaluating, StateFeedback, StateCompleted:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}

	switch event {
	case EventRedo, EventFail:
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventAdvance:
			return StateIdle, nil
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateEvaluating, nil
		case EventCancel:
			return StateIdle, nil
		}
	case StateEvaluating:
		switch event {
		case EventEvaluated:
			return StateFeedback, nil
		case EventComplete:
			return StateCompleted, nil
		case EventCancel:
			return StateIdle, nil
		}
	case StateFeedback, StateCompleted:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventAdvance:
			return StateIdle, nil
		}
	}
	return current, invalidTransition(current, event)
}

// Busy reports whether state holds the microphone or an in-flight evaluation.
func Busy(state State) bool {
	return state == StateRecording || state == StateEvaluating
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
