// Package session is the practice engine: it drives one exercise through
// recording, evaluation, completion and resumable progress.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/content"
	"github.com/dil-foundation/lms-web-app-sub004/internal/fsm"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/progress"
	"github.com/dil-foundation/lms-web-app-sub004/internal/scoring"
)

var (
	// ErrBusy rejects navigation while recording or evaluating.
	ErrBusy = errors.New("session is recording or evaluating")
	// ErrNotLoaded rejects commands before items are resolved.
	ErrNotLoaded = errors.New("exercise content is not loaded")
	// ErrInvalidPhase rejects a command the current phase does not allow.
	ErrInvalidPhase = errors.New("command not allowed in current phase")
	// ErrNothingToCancel is returned by Cancel outside recording or evaluation.
	ErrNothingToCancel = errors.New("nothing to cancel")
)

const (
	persistTimeout   = 10 * time.Second
	indicatorTimeout = 800 * time.Millisecond
)

// Recorder is the capture session.
type Recorder interface {
	Start(context.Context) error
	Stop() (practice.AudioUnit, error)
	Abort()
	Active() bool
	StartedAt() (time.Time, bool)
	SetAutoStopHandler(func(practice.AudioUnit, error))
}

// Player is the prompt playback controller.
type Player interface {
	Play(context.Context, practice.Clip) error
	Pause()
	Resume()
	Stop()
	Active() bool
}

// Resolver loads items and the resume position.
type Resolver interface {
	Load(context.Context, practice.Exercise, practice.User) content.Resolution
}

// ClipSource fetches prompt audio.
type ClipSource interface {
	Audio(context.Context, practice.Exercise, practice.Item) (practice.Clip, error)
}

// Encoder turns a recording into its transport text form.
type Encoder interface {
	Encode(practice.AudioUnit) (string, error)
}

// Submitter sends attempts to the scoring service.
type Submitter interface {
	Submit(context.Context, scoring.Request) scoring.Outcome
	Cancel()
}

// Dumper writes captured units to disk for debugging.
type Dumper interface {
	Dump(unit practice.AudioUnit, name string) (string, error)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowEvaluating(context.Context)
	ShowFeedback(ctx context.Context, score float64, message string)
	ShowCompleted(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)                 {}
func (noopIndicator) ShowEvaluating(context.Context)                {}
func (noopIndicator) ShowFeedback(context.Context, float64, string) {}
func (noopIndicator) ShowCompleted(context.Context)                 {}
func (noopIndicator) ShowError(context.Context, string)             {}
func (noopIndicator) CueStop(context.Context)                       {}
func (noopIndicator) CueComplete(context.Context)                   {}
func (noopIndicator) CueCancel(context.Context)                     {}
func (noopIndicator) Hide(context.Context)                          {}

// Deps wires a Controller.
type Deps struct {
	Logger    *slog.Logger
	Exercise  practice.Exercise
	User      practice.User
	Resolver  Resolver
	Recorder  Recorder
	Player    Player
	Clips     ClipSource
	Encoder   Encoder
	Submitter Submitter
	Store     progress.Store
	Indicator Indicator
	Dumper    Dumper
}

// Controller owns the session state for one exercise attempt.
type Controller struct {
	logger    *slog.Logger
	exercise  practice.Exercise
	user      practice.User
	resolver  Resolver
	recorder  Recorder
	player    Player
	clips     ClipSource
	encoder   Encoder
	submitter Submitter
	store     progress.Store
	indicator Indicator
	dumper    Dumper
	now       func() time.Time

	// opMu serializes commands; mu guards the fields below for snapshots.
	opMu sync.Mutex
	base context.Context

	mu                 sync.RWMutex
	loaded             bool
	fromFallback       bool
	items              []practice.Item
	completed          []bool
	index              int
	phase              fsm.State
	recordingStartedAt time.Time
	secondaryUsed      bool
	exerciseCompleted  bool
	lastFeedback       *practice.Feedback
	lastCompletion     *practice.Completion
	errInfo            *practice.ErrorInfo
	generation         uint64

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
}

// NewController constructs a controller and registers its auto-stop handler
// with the recorder.
func NewController(deps Deps) *Controller {
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	c := &Controller{
		logger:      deps.Logger,
		exercise:    deps.Exercise,
		user:        deps.User,
		resolver:    deps.Resolver,
		recorder:    deps.Recorder,
		player:      deps.Player,
		clips:       deps.Clips,
		encoder:     deps.Encoder,
		submitter:   deps.Submitter,
		store:       deps.Store,
		indicator:   deps.Indicator,
		dumper:      deps.Dumper,
		now:         time.Now,
		base:        context.Background(),
		phase:       fsm.StateIdle,
		subscribers: make(map[int]chan Event),
	}
	if c.recorder != nil {
		c.recorder.SetAutoStopHandler(c.onAutoStop)
	}
	return c
}

// Exercise returns the exercise parameters.
func (c *Controller) Exercise() practice.Exercise {
	return c.exercise
}

// State returns the current phase.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Load resolves items and the resume position, resetting the session state.
func (c *Controller) Load(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	res := c.resolver.Load(ctx, c.exercise, c.user)

	c.mu.Lock()
	c.loaded = true
	c.items = res.Items
	c.completed = res.Completed
	if len(c.completed) != len(c.items) {
		c.completed = make([]bool, len(c.items))
	}
	c.index = res.ResumeIndex
	c.fromFallback = res.FromFallback
	c.exerciseCompleted = res.Record != nil && res.Record.Completed
	c.phase = fsm.StateIdle
	c.resetItemLocked()
	c.mu.Unlock()

	c.logInfo("exercise loaded",
		"items", len(res.Items),
		"resume_index", res.ResumeIndex,
		"fallback", res.FromFallback,
	)
	c.publish(EventLoaded)
}

// Run loads the exercise and serves until ctx is done, then releases every
// resource the session holds.
func (c *Controller) Run(ctx context.Context) error {
	c.opMu.Lock()
	c.base = ctx
	c.opMu.Unlock()

	c.Load(ctx)
	<-ctx.Done()
	c.shutdown()
	return nil
}

func (c *Controller) shutdown() {
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
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), indicatorTimeout)
	defer cancel()
	c.indicator.Hide(ctx)
	c.logInfo("session shut down")
}

// resetItemLocked drops attempt state and item-scoped flags. Caller holds mu.
func (c *Controller) resetItemLocked() {
	c.clearAttemptLocked()
	c.secondaryUsed = false
}

// clearAttemptLocked drops per-attempt state. Caller holds mu.
func (c *Controller) clearAttemptLocked() {
	c.recordingStartedAt = time.Time{}
	c.lastFeedback = nil
	c.lastCompletion = nil
	c.errInfo = nil
}

// transitionLocked applies one FSM event. Caller holds mu.
func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.phase, event)
	if err != nil {
		return err
	}
	c.phase = next
	return nil
}

func (c *Controller) setError(info practice.ErrorInfo) {
	c.mu.Lock()
	c.errInfo = &info
	c.mu.Unlock()
}

func (c *Controller) indicatorCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), indicatorTimeout)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, append([]any{"exercise", c.exercise.Key}, args...)...)
}

func (c *Controller) logWarn(msg string, err error, args ...any) {
	if c.logger == nil {
		return
	}
	args = append([]any{"exercise", c.exercise.Key, "error", err.Error()}, args...)
	c.logger.Warn(msg, args...)
}
