package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/google/uuid"
)

// Request is one evaluation attempt.
type Request struct {
	Exercise      practice.Exercise
	ItemID        int
	AudioBase64   string
	UserID        string
	TimeSpent     time.Duration
	SecondaryUsed bool
	SubmittedAt   time.Time
}

// Filename is unique per attempt: exercise, item and submission time.
func (r Request) Filename(extension string) string {
	return fmt.Sprintf("%s_%d_%d.%s", r.Exercise.Key, r.ItemID, r.SubmittedAt.UnixMilli(), extension)
}

// Attempt is the wire form of a Request. ID is sent as attempt_id and as the
// idempotency key.
type Attempt struct {
	ID   string
	Path string
	Body map[string]any
}

func buildAttempt(req Request, extension string) Attempt {
	seconds := int(math.Round(req.TimeSpent.Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	id := uuid.NewString()
	itemField := req.Exercise.ItemField
	if itemField == "" {
		itemField = "item_id"
	}
	body := map[string]any{
		"audio_base64":       req.AudioBase64,
		itemField:            req.ItemID,
		"filename":           req.Filename(extension),
		"user_id":            req.UserID,
		"time_spent_seconds": seconds,
		"urdu_used":          req.SecondaryUsed,
		"attempt_id":         id,
	}
	return Attempt{ID: id, Path: req.Exercise.EvaluatePath, Body: body}
}
