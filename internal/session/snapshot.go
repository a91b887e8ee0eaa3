package session

import (
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/fsm"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

// Snapshot is the view-layer state of a session.
type Snapshot struct {
	Exercise           string               `json:"exercise"`
	Title              string               `json:"title"`
	Phase              fsm.State            `json:"phase"`
	Loaded             bool                 `json:"loaded"`
	Index              int                  `json:"index"`
	Total              int                  `json:"total"`
	Item               *practice.Item       `json:"item,omitempty"`
	Completed          []bool               `json:"completed"`
	FromFallback       bool                 `json:"from_fallback"`
	ExerciseCompleted  bool                 `json:"exercise_completed"`
	RecordingStartedAt *time.Time           `json:"recording_started_at,omitempty"`
	RecordWindowMillis int64                `json:"record_window_ms"`
	Feedback           *practice.Feedback   `json:"feedback,omitempty"`
	Completion         *practice.Completion `json:"completion,omitempty"`
	Error              *practice.ErrorInfo  `json:"error,omitempty"`
	PlaybackActive     bool                 `json:"playback_active"`
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	snap := Snapshot{
		Exercise:           c.exercise.Key,
		Title:              c.exercise.Title,
		Phase:              c.phase,
		Loaded:             c.loaded,
		Index:              c.index,
		Total:              len(c.items),
		Completed:          append([]bool(nil), c.completed...),
		FromFallback:       c.fromFallback,
		ExerciseCompleted:  c.exerciseCompleted,
		RecordWindowMillis: c.exercise.RecordWindow.Milliseconds(),
	}
	if c.index >= 0 && c.index < len(c.items) {
		item := c.items[c.index]
		snap.Item = &item
	}
	if !c.recordingStartedAt.IsZero() {
		started := c.recordingStartedAt
		snap.RecordingStartedAt = &started
	}
	if c.lastFeedback != nil {
		fb := *c.lastFeedback
		snap.Feedback = &fb
	}
	if c.lastCompletion != nil {
		completion := *c.lastCompletion
		snap.Completion = &completion
	}
	if c.errInfo != nil {
		info := *c.errInfo
		snap.Error = &info
	}
	c.mu.RUnlock()

	if c.player != nil {
		snap.PlaybackActive = c.player.Active()
	}
	return snap
}

// Items returns the resolved item list.
func (c *Controller) Items() []practice.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]practice.Item(nil), c.items...)
}
