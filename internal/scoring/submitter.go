package scoring

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

// DefaultTimeout bounds one evaluation round trip.
const DefaultTimeout = 15 * time.Second

// Outcome is exactly one of Feedback (optionally with Completion) or Err.
type Outcome struct {
	Feedback   *practice.Feedback
	Completion *practice.Completion
	Err        *SubmissionError
}

// Submitter sends attempts through a Transport and normalizes the result.
type Submitter struct {
	transport Transport
	timeout   time.Duration
	extension string
	logger    *slog.Logger

	mu       sync.Mutex
	inflight *inflight
}

type inflight struct {
	cancel context.CancelFunc
}

// Options configures a Submitter.
type Options struct {
	Timeout time.Duration
	// Extension names the container in generated filenames.
	Extension string
	Logger    *slog.Logger
}

// NewSubmitter constructs a submitter over transport.
func NewSubmitter(transport Transport, opts Options) *Submitter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Extension == "" {
		opts.Extension = "wav"
	}
	return &Submitter{
		transport: transport,
		timeout:   opts.Timeout,
		extension: opts.Extension,
		logger:    opts.Logger,
	}
}

// Submit sends req and blocks until an outcome is available, the timeout
// elapses or Cancel is called.
func (s *Submitter) Submit(ctx context.Context, req Request) Outcome {
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	current := &inflight{cancel: cancel}
	s.mu.Lock()
	if s.inflight != nil {
		s.inflight.cancel()
	}
	s.inflight = current
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		if s.inflight == current {
			s.inflight = nil
		}
		s.mu.Unlock()
	}()

	a := buildAttempt(req, s.extension)
	started := time.Now()
	resp, err := s.transport.Evaluate(ctx, a)
	if err != nil {
		subErr := classifyTransportErr(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			subErr = &SubmissionError{Reason: ReasonTimeout, Err: err}
		}
		s.logWarn("evaluation submission failed", req, subErr)
		return Outcome{Err: subErr}
	}

	feedback, completion, subErr := Classify(resp, MapperFor(req.Exercise.Mapper))
	if subErr != nil {
		s.logWarn("evaluation response rejected", req, subErr)
		return Outcome{Err: subErr}
	}

	if s.logger != nil {
		s.logger.Info("evaluation received",
			"exercise", req.Exercise.Key,
			"item_id", req.ItemID,
			"attempt_id", a.ID,
			"score", feedback.Score,
			"soft_failure", feedback.SoftFailure,
			"explicit_completion", completion != nil,
			"elapsed_ms", time.Since(started).Milliseconds(),
		)
	}
	return Outcome{Feedback: feedback, Completion: completion}
}

// Cancel aborts the in-flight submission, if any.
func (s *Submitter) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		s.inflight.cancel()
		s.inflight = nil
	}
}

func (s *Submitter) logWarn(msg string, req Request, err *SubmissionError) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg,
		"exercise", req.Exercise.Key,
		"item_id", req.ItemID,
		"reason", string(err.Reason),
		"error", err.Error(),
	)
}
