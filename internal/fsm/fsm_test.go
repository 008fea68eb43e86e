package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionStartFromIdle(t *testing.T) {
	next, err := Transition(StateIdle, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)
}

func TestTransitionStopFromRecording(t *testing.T) {
	next, err := Transition(StateRecording, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionStartWhileRecordingIsInvalid(t *testing.T) {
	_, err := Transition(StateRecording, EventStart)
	require.Error(t, err)
}

func TestTransitionStopWhileIdleIsInvalid(t *testing.T) {
	_, err := Transition(StateIdle, EventStop)
	require.Error(t, err)
}
