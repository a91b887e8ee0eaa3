// Package indicator surfaces session phases as desktop notifications and
// short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/config"
)

const (
	dispatchTimeout = 400 * time.Millisecond
	stickyMS        = 300000
	feedbackMS      = 6000
)

// Notifier implements the session indicator over a notification backend and
// pulse cues.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	backend  backend
	cue      func(cueKind) error

	soundMu sync.Mutex
	wg      sync.WaitGroup
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	var b backend = &desktopBackend{appName: strings.TrimSpace(cfg.DesktopAppName)}
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "hypr") {
		b = hyprBackend{}
	}
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: defaultMessages(),
		backend:  b,
		cue:      emitCue,
	}
}

func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	n.show(ctx, notice{level: levelInfo, timeoutMS: stickyMS, color: colorRecording, text: n.messages.recording})
}

func (n *Notifier) ShowEvaluating(ctx context.Context) {
	n.show(ctx, notice{level: levelInfo, timeoutMS: stickyMS, color: colorEvaluating, text: n.messages.evaluating})
}

// ShowFeedback shows the score with the first line of the feedback message.
func (n *Notifier) ShowFeedback(ctx context.Context, score float64, message string) {
	level, color := levelOK, colorGood
	if score < passScore {
		level, color = levelHint, colorRetry
	}
	n.show(ctx, notice{level: level, timeoutMS: feedbackMS, color: color, text: n.messages.feedback(score, message)})
}

func (n *Notifier) ShowCompleted(ctx context.Context) {
	n.show(ctx, notice{level: levelOK, timeoutMS: feedbackMS, color: colorGood, text: n.messages.completed})
}

// ShowError shows text, or the generic error message when text is empty.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.show(ctx, notice{level: levelError, timeoutMS: timeout, color: colorError, text: text})
}

func (n *Notifier) CueStop(context.Context)     { n.playCue(cueStop) }
func (n *Notifier) CueComplete(context.Context) { n.playCue(cueComplete) }
func (n *Notifier) CueCancel(context.Context)   { n.playCue(cueCancel) }

// Hide dismisses the current notification.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.backend.dismiss)
}

// Wait blocks until queued cues have played.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) show(ctx context.Context, msg notice) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error { return n.backend.notify(ctx, msg) })
}

func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue plays cues one at a time off the caller's goroutine.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable || n.cue == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
