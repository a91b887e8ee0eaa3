package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/capture"
	"github.com/dil-foundation/lms-web-app-sub004/internal/fsm"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/scoring"
)

// StartRecording stops prompt playback and acquires the microphone. A failed
// acquisition leaves the phase unchanged and records a permission error.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startLocked(ctx)
}

// startLocked is StartRecording with opMu held.
func (c *Controller) startLocked(ctx context.Context) error {
	c.mu.RLock()
	loaded, phase := c.loaded && len(c.items) > 0, c.phase
	c.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}
	if _, err := fsm.Transition(phase, fsm.EventStart); err != nil {
		if fsm.Busy(phase) {
			return ErrBusy
		}
		return fmt.Errorf("%w: %w", ErrInvalidPhase, err)
	}

	if c.player != nil {
		c.player.Stop()
	}
	if err := c.recorder.Start(ctx); err != nil {
		if errors.Is(err, capture.ErrAlreadyRecording) {
			return ErrBusy
		}
		info := practice.Classify(err)
		c.setError(info)
		c.logWarn("recording start failed", err)
		ictx, cancel := c.indicatorCtx()
		c.indicator.ShowError(ictx, info.Message)
		cancel()
		c.publish(EventError)
		return err
	}

	c.mu.Lock()
	_ = c.transitionLocked(fsm.EventStart)
	c.clearAttemptLocked()
	c.recordingStartedAt = c.now()
	if started, ok := c.recorder.StartedAt(); ok {
		c.recordingStartedAt = started
	}
	c.mu.Unlock()

	ictx, cancel := c.indicatorCtx()
	c.indicator.ShowRecording(ictx)
	cancel()
	c.logInfo("recording started", "item_id", c.currentItem().ID)
	c.publish(EventPhase)
	return nil
}

// StopRecording finalizes the recording and starts evaluation. When the
// auto-stop timer already finalized it, the call is a no-op.
func (c *Controller) StopRecording(context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	if phase := c.State(); phase != fsm.StateRecording {
		if phase == fsm.StateEvaluating {
			return ErrBusy
		}
		return fmt.Errorf("%w: cannot stop from state %s", ErrInvalidPhase, phase)
	}

	unit, err := c.recorder.Stop()
	if errors.Is(err, capture.ErrNotRecording) {
		return nil
	}
	c.evaluateLocked(unit, err)
	return nil
}

// Toggle starts a recording, or stops the active one. A press that lands
// after the recording window already closed is a no-op.
func (c *Controller) Toggle(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch c.State() {
	case fsm.StateRecording:
		return c.stopLocked()
	case fsm.StateEvaluating:
		return nil
	}
	return c.startLocked(ctx)
}

// onAutoStop receives units finalized by the recording window timer.
func (c *Controller) onAutoStop(unit practice.AudioUnit, err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	current := c.phase == fsm.StateRecording && unit.StartedAt.Equal(c.recordingStartedAt)
	c.mu.RUnlock()
	if !current {
		c.logInfo("stale auto-stop ignored")
		return
	}
	c.logInfo("recording window elapsed")
	c.evaluateLocked(unit, err)
}

// evaluateLocked moves a finalized unit through encoding into an async
// submission. Caller holds opMu and the phase is Recording.
func (c *Controller) evaluateLocked(unit practice.AudioUnit, stopErr error) {
	if stopErr != nil {
		c.failAttempt(stopErr, "recording produced no usable audio")
		return
	}

	c.mu.Lock()
	_ = c.transitionLocked(fsm.EventStop)
	index := c.index
	item := c.items[index]
	startedAt := c.recordingStartedAt
	secondaryUsed := c.secondaryUsed
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	ictx, cancel := c.indicatorCtx()
	c.indicator.CueStop(ictx)
	c.indicator.ShowEvaluating(ictx)
	cancel()
	c.publish(EventPhase)

	c.dump(unit, item)

	encoded, err := c.encoder.Encode(unit)
	if err != nil {
		c.failAttempt(err, "recording could not be encoded")
		return
	}

	submittedAt := c.now()
	req := scoring.Request{
		Exercise:      c.exercise,
		ItemID:        item.ID,
		AudioBase64:   encoded,
		UserID:        c.user.ID,
		TimeSpent:     submittedAt.Sub(startedAt),
		SecondaryUsed: secondaryUsed,
		SubmittedAt:   submittedAt,
	}
	base := c.base
	go c.submit(base, generation, index, req)
}

func (c *Controller) submit(ctx context.Context, generation uint64, index int, req scoring.Request) {
	outcome := c.submitter.Submit(ctx, req)

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	stale := generation != c.generation || c.phase != fsm.StateEvaluating
	c.mu.RUnlock()
	if stale {
		c.logInfo("discarding stale evaluation outcome", "item_id", req.ItemID)
		return
	}
	c.applyOutcome(outcome, index, req.ItemID)
}

// applyOutcome records an evaluation result. Caller holds opMu.
func (c *Controller) applyOutcome(outcome scoring.Outcome, index, itemID int) {
	if outcome.Err != nil {
		info := practice.ErrorInfo{
			Kind:      practice.KindSubmission,
			Message:   "Evaluation failed. You can try again without penalty.",
			Retryable: true,
		}
		c.mu.Lock()
		_ = c.transitionLocked(fsm.EventEvaluated)
		c.lastFeedback = nil
		c.lastCompletion = nil
		c.errInfo = &info
		c.mu.Unlock()

		ictx, cancel := c.indicatorCtx()
		c.indicator.ShowError(ictx, info.Message)
		cancel()
		c.publish(EventError)
		return
	}

	c.mu.RLock()
	completed := append([]bool(nil), c.completed...)
	c.mu.RUnlock()
	decision := Decide(outcome, index, completed, c.exercise.SingleAttempt)

	fb := *outcome.Feedback
	c.mu.Lock()
	if decision.Completed {
		_ = c.transitionLocked(fsm.EventComplete)
		c.exerciseCompleted = true
	} else {
		_ = c.transitionLocked(fsm.EventEvaluated)
	}
	if decision.Accepted && index < len(c.completed) {
		c.completed[index] = true
	}
	c.lastFeedback = &fb
	c.lastCompletion = outcome.Completion
	c.errInfo = nil
	if fb.SoftFailure {
		c.errInfo = &practice.ErrorInfo{Kind: practice.KindSoftFailure, Message: fb.Message, Retryable: true}
	}
	exerciseCompleted := c.exerciseCompleted
	c.mu.Unlock()

	c.logInfo("evaluation applied",
		"item_id", itemID,
		"score", fb.Score,
		"soft_failure", fb.SoftFailure,
		"accepted", decision.Accepted,
		"completed", decision.Completed,
		"explicit", decision.Explicit,
	)

	if decision.Accepted || decision.Completed {
		c.persist(index+1, exerciseCompleted)
	}

	ictx, cancel := c.indicatorCtx()
	defer cancel()
	if decision.Completed {
		c.indicator.CueComplete(ictx)
		c.indicator.ShowCompleted(ictx)
		c.publish(EventCompleted)
		return
	}
	c.indicator.ShowFeedback(ictx, fb.Score, fb.Message)
	c.publish(EventFeedback)
}

// failAttempt returns a recording or encoding failure to idle. Caller holds opMu.
func (c *Controller) failAttempt(err error, msg string) {
	info := practice.Classify(err)
	c.mu.Lock()
	_ = c.transitionLocked(fsm.EventFail)
	c.recordingStartedAt = time.Time{}
	c.errInfo = &info
	c.mu.Unlock()

	c.logWarn(msg, err)
	ictx, cancel := c.indicatorCtx()
	c.indicator.CueCancel(ictx)
	c.indicator.ShowError(ictx, info.Message)
	cancel()
	c.publish(EventError)
}

func (c *Controller) dump(unit practice.AudioUnit, item practice.Item) {
	if c.dumper == nil {
		return
	}
	name := fmt.Sprintf("%s-%d-%d", c.exercise.Key, item.ID, unit.StartedAt.UnixMilli())
	path, err := c.dumper.Dump(unit, name)
	if err != nil {
		c.logWarn("debug audio dump failed", err)
		return
	}
	c.logInfo("debug audio dumped", "path", path)
}

func (c *Controller) currentItem() practice.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index < 0 || c.index >= len(c.items) {
		return practice.Item{}
	}
	return c.items[c.index]
}
