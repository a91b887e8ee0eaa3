package session

import (
	"context"
	"errors"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/fsm"
	"github.com/dil-foundation/lms-web-app-sub004/internal/playback"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

// Next moves to the following item. It is ignored while busy and clamps at
// the last item.
func (c *Controller) Next(context.Context) error {
	return c.move(1)
}

// Previous moves to the preceding item, clamping at the first.
func (c *Controller) Previous(context.Context) error {
	return c.move(-1)
}

func (c *Controller) move(delta int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.loaded || len(c.items) == 0 {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	if fsm.Busy(c.phase) {
		c.mu.Unlock()
		return ErrBusy
	}
	target := c.index + delta
	if target < 0 {
		target = 0
	}
	if target > len(c.items)-1 {
		target = len(c.items) - 1
	}
	if target == c.index {
		c.mu.Unlock()
		return nil
	}
	if err := c.transitionLocked(fsm.EventAdvance); err != nil {
		c.mu.Unlock()
		return err
	}
	c.index = target
	c.resetItemLocked()
	completed := c.exerciseCompleted
	c.mu.Unlock()

	if c.player != nil {
		c.player.Stop()
	}
	c.logInfo("moved to item", "index", target)
	c.persist(target+1, completed)
	c.publish(EventItem)
	return nil
}

// Redo restarts the exercise from the first item. It forces capture and
// playback idle and abandons any in-flight evaluation. Calling it twice
// yields the same state as calling it once.
func (c *Controller) Redo(context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.recorder != nil {
		c.recorder.Abort()
	}
	if c.player != nil {
		c.player.Stop()
	}
	if c.submitter != nil {
		c.submitter.Cancel()
	}

	c.mu.Lock()
	c.generation++
	_ = c.transitionLocked(fsm.EventRedo)
	c.index = 0
	c.exerciseCompleted = false
	for i := range c.completed {
		c.completed[i] = false
	}
	c.resetItemLocked()
	c.mu.Unlock()

	ictx, cancel := c.indicatorCtx()
	c.indicator.Hide(ictx)
	cancel()

	c.logInfo("exercise restarted")
	c.persistRecord(practice.ResetRecord(c.user.ID, c.exercise.StageID, c.exercise.ExerciseID))
	c.publish(EventPhase)
	return nil
}

// Cancel aborts an active recording or an in-flight evaluation and returns
// to idle without persisting anything.
func (c *Controller) Cancel(context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch c.State() {
	case fsm.StateRecording:
		c.recorder.Abort()
	case fsm.StateEvaluating:
		if c.submitter != nil {
			c.submitter.Cancel()
		}
	default:
		return ErrNothingToCancel
	}

	c.mu.Lock()
	c.generation++
	_ = c.transitionLocked(fsm.EventCancel)
	c.recordingStartedAt = time.Time{}
	c.mu.Unlock()

	ictx, cancel := c.indicatorCtx()
	c.indicator.CueCancel(ictx)
	c.indicator.Hide(ictx)
	cancel()

	c.logInfo("attempt cancelled")
	c.publish(EventPhase)
	return nil
}

// PlayPrompt plays the active item's reference audio. It is refused while
// recording; playback failures are recorded but never change the phase.
func (c *Controller) PlayPrompt(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.State() == fsm.StateRecording {
		return playback.ErrCaptureActive
	}
	if c.player == nil || c.clips == nil {
		return c.playbackFailed(practice.ErrPlayback)
	}
	item := c.currentItem()
	if item.ID == 0 {
		return ErrNotLoaded
	}

	clip, err := c.clips.Audio(ctx, c.exercise, item)
	if err != nil {
		return c.playbackFailed(err)
	}
	if err := c.player.Play(ctx, clip); err != nil {
		if errors.Is(err, playback.ErrCaptureActive) {
			return err
		}
		return c.playbackFailed(err)
	}
	c.logInfo("prompt playing", "item_id", item.ID)
	c.publish(EventPhase)
	return nil
}

// PausePrompt pauses prompt playback.
func (c *Controller) PausePrompt() {
	if c.player != nil {
		c.player.Pause()
	}
}

// ResumePrompt resumes paused prompt playback.
func (c *Controller) ResumePrompt() {
	if c.player != nil {
		c.player.Resume()
	}
}

// RevealSecondary returns the active item's secondary text and marks it as
// used for the current attempt.
func (c *Controller) RevealSecondary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || c.index >= len(c.items) {
		return ""
	}
	c.secondaryUsed = true
	return c.items[c.index].Secondary
}

func (c *Controller) playbackFailed(err error) error {
	if !errors.Is(err, practice.ErrPlayback) {
		err = errors.Join(practice.ErrPlayback, err)
	}
	c.setError(practice.Classify(err))
	c.logWarn("prompt playback failed", err)
	c.publish(EventError)
	return err
}

// persist writes the resume position for the current user.
func (c *Controller) persist(currentItemID int, completed bool) {
	rec := practice.ProgressRecord{
		UserID:        c.user.ID,
		StageID:       c.exercise.StageID,
		ExerciseID:    c.exercise.ExerciseID,
		CurrentItemID: currentItemID,
		Completed:     completed,
	}
	if completed {
		at := c.now().UTC()
		rec.CompletedAt = &at
	}
	c.persistRecord(rec)
}

// persistRecord is bounded and never fails the flow; errors are logged.
func (c *Controller) persistRecord(rec practice.ProgressRecord) {
	if c.store == nil || c.user.Anonymous() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.Set(ctx, rec); err != nil {
		c.logWarn("progress sync failed", err, "current_item_id", rec.CurrentItemID, "completed", rec.Completed)
		return
	}
	c.logInfo("progress saved", "current_item_id", rec.CurrentItemID, "completed", rec.Completed)
}
