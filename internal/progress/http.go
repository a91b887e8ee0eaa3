package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

const (
	initializePath = "/api/progress/initialize-progress"
	currentPath    = "/api/progress/get-current-topic"
)

// HTTPStore talks to the learning backend's progress routes.
type HTTPStore struct {
	Client *backend.Client
}

type currentRequest struct {
	UserID      string `json:"user_id"`
	StageID     int    `json:"stage_id"`
	ExerciseID  int    `json:"exercise_id"`
	TopicID     *int   `json:"topic_id,omitempty"`
	IsCompleted *bool  `json:"is_completed,omitempty"`
}

type currentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    *struct {
		CurrentTopicID int  `json:"current_topic_id"`
		IsNewExercise  bool `json:"is_new_exercise"`
		IsCompleted    bool `json:"is_completed"`
		ExerciseData   *struct {
			CompletedAt *time.Time `json:"completed_at"`
		} `json:"exercise_data"`
	} `json:"data"`
}

type ackResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s HTTPStore) Get(ctx context.Context, key Key) (practice.ProgressRecord, bool, error) {
	var resp currentResponse
	req := currentRequest{UserID: key.UserID, StageID: key.StageID, ExerciseID: key.ExerciseID}
	if err := s.Client.Post(ctx, currentPath, req, &resp); err != nil {
		return practice.ProgressRecord{}, false, fmt.Errorf("%w: get current topic: %w", practice.ErrProgressSync, err)
	}
	if !resp.Success {
		return practice.ProgressRecord{}, false, fmt.Errorf("%w: get current topic: %s", practice.ErrProgressSync, firstNonEmpty(resp.Error, resp.Message, "unsuccessful response"))
	}
	if resp.Data == nil || resp.Data.IsNewExercise || resp.Data.CurrentTopicID <= 0 {
		return practice.ProgressRecord{}, false, nil
	}

	rec := practice.ProgressRecord{
		UserID:        key.UserID,
		StageID:       key.StageID,
		ExerciseID:    key.ExerciseID,
		CurrentItemID: resp.Data.CurrentTopicID,
		Completed:     resp.Data.IsCompleted,
	}
	if resp.Data.ExerciseData != nil {
		rec.CompletedAt = resp.Data.ExerciseData.CompletedAt
	}
	return rec, true, nil
}

func (s HTTPStore) Set(ctx context.Context, rec practice.ProgressRecord) error {
	topic := rec.CurrentItemID
	completed := rec.Completed
	req := currentRequest{
		UserID:      rec.UserID,
		StageID:     rec.StageID,
		ExerciseID:  rec.ExerciseID,
		TopicID:     &topic,
		IsCompleted: &completed,
	}
	return s.ack(ctx, currentPath, req, "update current topic")
}

func (s HTTPStore) Init(ctx context.Context, userID string) error {
	return s.ack(ctx, initializePath, map[string]string{"user_id": userID}, "initialize progress")
}

func (s HTTPStore) ack(ctx context.Context, path string, req any, op string) error {
	var resp ackResponse
	if err := s.Client.Post(ctx, path, req, &resp); err != nil {
		return fmt.Errorf("%w: %s: %w", practice.ErrProgressSync, op, err)
	}
	if resp.Success != nil && !*resp.Success {
		return fmt.Errorf("%w: %s: %s", practice.ErrProgressSync, op, firstNonEmpty(resp.Error, resp.Message, "unsuccessful response"))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
