package practice

import "time"

// User is the opaque learner identity consumed by the engine.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Anonymous reports whether no user id is available.
func (u User) Anonymous() bool {
	return u.ID == ""
}

// ProgressRecord is the persisted resume position for one (user, stage, exercise).
// CurrentItemID is 1-based.
type ProgressRecord struct {
	UserID        string     `json:"user_id"`
	StageID       int        `json:"stage_id"`
	ExerciseID    int        `json:"exercise_id"`
	CurrentItemID int        `json:"current_item_id"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ResetRecord returns the record written by a redo: first item, not completed.
func ResetRecord(userID string, stageID, exerciseID int) ProgressRecord {
	return ProgressRecord{
		UserID:        userID,
		StageID:       stageID,
		ExerciseID:    exerciseID,
		CurrentItemID: 1,
	}
}
