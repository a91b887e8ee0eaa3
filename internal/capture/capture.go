// Package capture owns the microphone lifecycle for one recording at a time.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

var (
	// ErrAlreadyRecording rejects a start while a recording is active.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop when no recording is active, including
	// when the auto-stop timer already finalized it.
	ErrNotRecording = errors.New("no active recording")
)

const drainTimeout = 2 * time.Second

// Stream is one acquired microphone stream. Close releases the device and
// must close Chunks.
type Stream interface {
	Chunks() <-chan []byte
	Format() practice.AudioFormat
	Close() error
}

// Device acquires microphone streams.
type Device interface {
	Open(context.Context) (Stream, error)
}

// AutoStopFunc receives the unit finalized by the auto-stop timer.
type AutoStopFunc func(practice.AudioUnit, error)

// Options configures a Session.
type Options struct {
	Window time.Duration
	// Yield runs before the device is acquired; used to stop prompt playback.
	Yield      func()
	OnAutoStop AutoStopFunc
	Logger     *slog.Logger
}

// Session records from a Device, one recording at a time.
type Session struct {
	device Device
	opts   Options
	now    func() time.Time

	mu        sync.Mutex
	active    bool
	starting  bool
	stream    Stream
	buf       []byte
	format    practice.AudioFormat
	startedAt time.Time
	timer     *time.Timer
	drained   chan struct{}
}

// New constructs a capture session over device.
func New(device Device, opts Options) *Session {
	return &Session{device: device, opts: opts, now: time.Now}
}

// Start acquires the device and begins buffering. A failed acquisition wraps
// practice.ErrPermission and leaves nothing acquired.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active || s.starting {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	s.starting = true
	s.mu.Unlock()

	if s.opts.Yield != nil {
		s.opts.Yield()
	}
	stream, err := s.device.Open(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return fmt.Errorf("%w: %w", practice.ErrPermission, err)
	}

	s.active = true
	s.stream = stream
	s.buf = nil
	s.format = stream.Format()
	s.startedAt = s.now()
	s.drained = make(chan struct{})
	go s.pump(stream.Chunks(), s.drained)

	if s.opts.Window > 0 {
		s.timer = time.AfterFunc(s.opts.Window, s.autoStop)
	}
	s.logInfo("capture started", "window_ms", s.opts.Window.Milliseconds())
	return nil
}

// Stop finalizes the active recording and returns the assembled unit.
func (s *Session) Stop() (practice.AudioUnit, error) {
	return s.finalize("stop")
}

// Abort releases the device and discards buffered audio. It is a no-op when idle.
func (s *Session) Abort() {
	stream, drained, ok := s.detach()
	if !ok {
		return
	}
	s.release(stream, drained)
	s.mu.Lock()
	s.buf = nil
	s.mu.Unlock()
	s.logInfo("capture aborted")
}

// SetAutoStopHandler replaces the handler receiving auto-stopped units.
func (s *Session) SetAutoStopHandler(fn func(practice.AudioUnit, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.OnAutoStop = fn
}

// Active reports whether a recording is in progress or being acquired.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active || s.starting
}

// StartedAt returns the start time of the active recording.
func (s *Session) StartedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, s.active
}

func (s *Session) autoStop() {
	unit, err := s.finalize("auto")
	if errors.Is(err, ErrNotRecording) {
		return
	}
	s.mu.Lock()
	handler := s.opts.OnAutoStop
	s.mu.Unlock()
	if handler != nil {
		handler(unit, err)
	}
}

// finalize is the single path producing a recording unit; the loser of a
// stop/auto-stop race gets ErrNotRecording.
func (s *Session) finalize(reason string) (practice.AudioUnit, error) {
	s.mu.Lock()
	startedAt := s.startedAt
	format := s.format
	s.mu.Unlock()

	stream, drained, ok := s.detach()
	if !ok {
		return practice.AudioUnit{}, ErrNotRecording
	}
	stoppedAt := s.now()
	s.release(stream, drained)

	s.mu.Lock()
	pcm := s.buf
	s.buf = nil
	s.mu.Unlock()

	unit := practice.AudioUnit{PCM: pcm, Format: format, StartedAt: startedAt, StoppedAt: stoppedAt}
	s.logInfo("capture finalized", "reason", reason, "bytes", len(pcm), "duration_ms", unit.Duration().Milliseconds())
	if len(pcm) == 0 {
		return unit, practice.ErrEmptyRecording
	}
	return unit, nil
}

// detach clears active state and hands ownership of the stream to the caller exactly once.
func (s *Session) detach() (Stream, chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, nil, false
	}
	s.active = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	stream, drained := s.stream, s.drained
	s.stream, s.drained = nil, nil
	return stream, drained, true
}

func (s *Session) release(stream Stream, drained chan struct{}) {
	if err := stream.Close(); err != nil {
		s.logWarn("release microphone stream failed", err)
	}
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		s.logWarn("microphone stream did not drain", errors.New("drain timeout"))
	}
}

func (s *Session) pump(chunks <-chan []byte, drained chan struct{}) {
	defer close(drained)
	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		s.mu.Lock()
		s.buf = append(s.buf, chunk...)
		s.mu.Unlock()
	}
}

func (s *Session) logInfo(msg string, args ...any) {
	if s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Info(msg, args...)
}

func (s *Session) logWarn(msg string, err error) {
	if s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Warn(msg, "error", err.Error())
}
