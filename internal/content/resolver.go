package content

import (
	"context"
	"log/slog"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/progress"
)

// Resolution is the item list and resume position for one exercise entry.
type Resolution struct {
	Items       []practice.Item
	ResumeIndex int
	// Completed marks items before the resume position.
	Completed    []bool
	FromFallback bool
	// Record is the stored progress, when one exists.
	Record *practice.ProgressRecord
}

// Resolver combines a Provider, a progress Store and the fallback catalog.
type Resolver struct {
	provider    Provider
	store       progress.Store
	initializer *progress.Initializer
	logger      *slog.Logger
}

// NewResolver constructs a resolver. store may be nil.
func NewResolver(provider Provider, store progress.Store, initializer *progress.Initializer, logger *slog.Logger) *Resolver {
	return &Resolver{provider: provider, store: store, initializer: initializer, logger: logger}
}

// Load never returns zero items: an erroring or empty provider result is
// replaced by the exercise's fallback list.
func (r *Resolver) Load(ctx context.Context, ex practice.Exercise, user practice.User) Resolution {
	res := Resolution{}

	var items []practice.Item
	var err error
	if r.provider != nil {
		items, err = r.provider.Items(ctx, ex)
	}
	switch {
	case err != nil:
		r.logWarn("content load failed; using fallback", ex, "error", err.Error())
		items = nil
	case len(items) == 0 && r.provider != nil:
		r.logWarn("content provider returned no items; using fallback", ex)
	}
	if len(items) == 0 {
		items = append([]practice.Item(nil), ex.Fallback...)
		res.FromFallback = true
	}
	res.Items = items
	res.Completed = make([]bool, len(items))

	if user.Anonymous() || r.store == nil || len(items) == 0 {
		return res
	}

	key := progress.Key{UserID: user.ID, StageID: ex.StageID, ExerciseID: ex.ExerciseID}
	rec, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok || rec.CurrentItemID <= 0 {
		if err != nil {
			r.logWarn("progress lookup failed", ex, "error", err.Error())
		}
		if r.initializer != nil {
			_ = r.initializer.Ensure(ctx, user.ID)
		}
		return res
	}

	res.Record = &rec
	res.ResumeIndex = ResumeIndex(rec.CurrentItemID, len(items))
	for i := 0; i < res.ResumeIndex; i++ {
		res.Completed[i] = true
	}
	return res
}

// ResumeIndex converts a 1-based current item id into a clamped 0-based index.
func ResumeIndex(currentItemID, count int) int {
	if count <= 0 {
		return 0
	}
	idx := currentItemID - 1
	if idx < 0 {
		return 0
	}
	if idx > count-1 {
		return count - 1
	}
	return idx
}

func (r *Resolver) logWarn(msg string, ex practice.Exercise, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, append([]any{"exercise", ex.Key}, args...)...)
}
