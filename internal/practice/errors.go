package practice

import (
	"errors"
	"fmt"
)

var (
	// ErrPermission indicates the microphone could not be acquired.
	ErrPermission = errors.New("microphone access denied")
	// ErrEmptyRecording indicates a recording finished with no captured audio.
	ErrEmptyRecording = errors.New("no audio captured")
	// ErrPlayback indicates prompt audio could not be loaded or played.
	ErrPlayback = errors.New("prompt playback failed")
	// ErrProgressSync indicates a progress store call failed.
	ErrProgressSync = errors.New("progress sync failed")
	// ErrEncoding indicates a recording could not be encoded for submission.
	ErrEncoding = errors.New("audio encoding failed")
)

// ErrorKind classifies failures surfaced to the view layer.
type ErrorKind string

const (
	KindPermission     ErrorKind = "permission"
	KindEmptyRecording ErrorKind = "empty_recording"
	KindSoftFailure    ErrorKind = "soft_failure"
	KindSubmission     ErrorKind = "submission"
	KindPlayback       ErrorKind = "playback"
	KindProgressSync   ErrorKind = "progress_sync"
	KindEncoding       ErrorKind = "encoding"
)

// ErrorInfo is the classified error carried on the session state.
type ErrorInfo struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (e ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// BlocksAdvance reports whether the error should keep the learner on the current item.
func (e ErrorInfo) BlocksAdvance() bool {
	return e.Kind == KindPermission || e.Kind == KindEmptyRecording
}

// Classify maps a component error onto the taxonomy. Unknown errors classify as submission faults.
func Classify(err error) ErrorInfo {
	switch {
	case err == nil:
		return ErrorInfo{}
	case errors.Is(err, ErrPermission):
		return ErrorInfo{Kind: KindPermission, Message: "Microphone access is required to record. Check your input device and try again.", Retryable: false}
	case errors.Is(err, ErrEmptyRecording):
		return ErrorInfo{Kind: KindEmptyRecording, Message: "No audio was recorded. Please try again.", Retryable: true}
	case errors.Is(err, ErrPlayback):
		return ErrorInfo{Kind: KindPlayback, Message: "Prompt audio is unavailable.", Retryable: true}
	case errors.Is(err, ErrProgressSync):
		return ErrorInfo{Kind: KindProgressSync, Message: err.Error(), Retryable: true}
	case errors.Is(err, ErrEncoding):
		return ErrorInfo{Kind: KindEncoding, Message: "The recording could not be prepared for upload. Please record again.", Retryable: true}
	default:
		return ErrorInfo{Kind: KindSubmission, Message: err.Error(), Retryable: true}
	}
}
