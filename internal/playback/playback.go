// Package playback plays prompt clips, one loaded clip at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

// ErrCaptureActive refuses playback while the microphone is recording.
var ErrCaptureActive = errors.New("playback refused while recording")

// Track is one loaded clip. Release frees its buffers and is called exactly once.
type Track interface {
	Play() error
	Pause()
	Resume()
	Stop()
	Done() <-chan struct{}
	Release() error
}

// Player loads clips into playable tracks.
type Player interface {
	Load(context.Context, practice.Clip) (Track, error)
}

// Controller owns the single loaded track.
type Controller struct {
	player Player
	gate   func() bool
	logger *slog.Logger

	mu    sync.Mutex
	track Track
}

// New constructs a controller. gate reports whether capture is active; play is refused while it is.
func New(player Player, gate func() bool, logger *slog.Logger) *Controller {
	return &Controller{player: player, gate: gate, logger: logger}
}

// SetGate replaces the capture gate.
func (c *Controller) SetGate(gate func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
}

// Play tears down the previous track, loads clip and starts it.
func (c *Controller) Play(ctx context.Context, clip practice.Clip) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gate != nil && c.gate() {
		return ErrCaptureActive
	}
	c.teardownLocked()

	if clip.Empty() {
		return fmt.Errorf("%w: clip has no audio", practice.ErrPlayback)
	}
	if c.player == nil {
		return fmt.Errorf("%w: no audio output configured", practice.ErrPlayback)
	}

	track, err := c.player.Load(ctx, clip)
	if err != nil {
		return fmt.Errorf("%w: %w", practice.ErrPlayback, err)
	}
	if err := track.Play(); err != nil {
		c.releaseTrack(track)
		return fmt.Errorf("%w: %w", practice.ErrPlayback, err)
	}
	c.track = track
	go c.reap(track)
	return nil
}

// Pause pauses the loaded track.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track != nil {
		c.track.Pause()
	}
}

// Resume resumes a paused track unless capture became active meanwhile.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil || (c.gate != nil && c.gate()) {
		return
	}
	c.track.Resume()
}

// Stop stops and releases the loaded track. It is a no-op when nothing is loaded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// Active reports whether a track is loaded.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.track != nil
}

func (c *Controller) teardownLocked() {
	if c.track == nil {
		return
	}
	track := c.track
	c.track = nil
	track.Stop()
	c.releaseTrack(track)
}

// reap releases a track that finished on its own.
func (c *Controller) reap(track Track) {
	<-track.Done()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track != track {
		return
	}
	c.track = nil
	c.releaseTrack(track)
}

func (c *Controller) releaseTrack(track Track) {
	if err := track.Release(); err != nil && c.logger != nil {
		c.logger.Warn("release prompt clip failed", "error", err.Error())
	}
}
