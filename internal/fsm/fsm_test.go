package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateEvaluating, next)

	next, err = Transition(next, EventEvaluated)
	require.NoError(t, err)
	require.Equal(t, StateFeedback, next)

	next, err = Transition(next, EventAdvance)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionEvaluatingCanComplete(t *testing.T) {
	next, err := Transition(StateEvaluating, EventComplete)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, next)
}

func TestTransitionRedoAndFailFromAnyStateGoIdle(t *testing.T) {
	states := []State{StateIdle, StateRecording, StateEvaluating, StateFeedback, StateCompleted}
	for _, state := range states {
		for _, event := range []Event{EventRedo, EventFail} {
			next, err := Transition(state, event)
			require.NoError(t, err)
			require.Equal(t, StateIdle, next)
		}
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle cancel invalid", state: StateIdle, event: EventCancel, want: StateIdle, wantErr: true},
		{name: "recording start invalid", state: StateRecording, event: EventStart, want: StateRecording, wantErr: true},
		{name: "recording advance invalid", state: StateRecording, event: EventAdvance, want: StateRecording, wantErr: true},
		{name: "recording evaluated invalid", state: StateRecording, event: EventEvaluated, want: StateRecording, wantErr: true},
		{name: "evaluating start invalid", state: StateEvaluating, event: EventStart, want: StateEvaluating, wantErr: true},
		{name: "evaluating advance invalid", state: StateEvaluating, event: EventAdvance, want: StateEvaluating, wantErr: true},
		{name: "evaluating cancel valid", state: StateEvaluating, event: EventCancel, want: StateIdle, wantErr: false},
		{name: "feedback stop invalid", state: StateFeedback, event: EventStop, want: StateFeedback, wantErr: true},
		{name: "feedback start valid", state: StateFeedback, event: EventStart, want: StateRecording, wantErr: false},
		{name: "completed complete invalid", state: StateCompleted, event: EventComplete, want: StateCompleted, wantErr: true},
		{name: "completed advance valid", state: StateCompleted, event: EventAdvance, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventRedo)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestBusy(t *testing.T) {
	require.True(t, Busy(StateRecording))
	require.True(t, Busy(StateEvaluating))
	require.False(t, Busy(StateIdle))
	require.False(t, Busy(StateFeedback))
	require.False(t, Busy(StateCompleted))
}
