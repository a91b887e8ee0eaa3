// Package progress persists resume positions per (user, stage, exercise).
package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"golang.org/x/sync/singleflight"
)

// Key identifies one progress record.
type Key struct {
	UserID     string
	StageID    int
	ExerciseID int
}

// KeyOf returns the key of rec.
func KeyOf(rec practice.ProgressRecord) Key {
	return Key{UserID: rec.UserID, StageID: rec.StageID, ExerciseID: rec.ExerciseID}
}

// Store reads and writes progress records. Writes are last-writer-wins.
type Store interface {
	// Get returns the record and whether one exists.
	Get(ctx context.Context, key Key) (practice.ProgressRecord, bool, error)
	Set(ctx context.Context, rec practice.ProgressRecord) error
	// Init prepares the store for a user's first visit.
	Init(ctx context.Context, userID string) error
}

// Initializer runs Store.Init at most once per user per process. Concurrent
// callers share one in-flight call.
type Initializer struct {
	store  Store
	logger *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	done  map[string]bool
}

// NewInitializer wraps store.
func NewInitializer(store Store, logger *slog.Logger) *Initializer {
	return &Initializer{store: store, logger: logger, done: make(map[string]bool)}
}

// Ensure initializes progress for userID. Failures are logged and returned;
// a failed user is retried on the next call.
func (i *Initializer) Ensure(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	i.mu.Lock()
	if i.done[userID] {
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	_, err, shared := i.group.Do(userID, func() (any, error) {
		i.mu.Lock()
		initialized := i.done[userID]
		i.mu.Unlock()
		if initialized {
			return nil, nil
		}
		if err := i.store.Init(ctx, userID); err != nil {
			return nil, err
		}
		i.mu.Lock()
		i.done[userID] = true
		i.mu.Unlock()
		return nil, nil
	})
	if err != nil && i.logger != nil {
		i.logger.Warn("progress initialization failed", "user_id", userID, "shared", shared, "error", err.Error())
	}
	return err
}
