package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dil-foundation/lms-web-app-sub004/internal/ipc"
	"github.com/dil-foundation/lms-web-app-sub004/internal/playback"
)

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		err     error
		message string
	)
	if req.Exercise != "" && req.Exercise != c.exercise.Key {
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("active session is %s, not %s", c.exercise.Key, req.Exercise)}
	}
	switch req.Command {
	case "status":
		message = "status"
	case "toggle":
		err, message = c.Toggle(ctx), "toggled"
	case "start":
		err, message = c.StartRecording(ctx), "recording started"
	case "stop":
		err, message = c.StopRecording(ctx), "stop requested"
	case "cancel":
		err, message = c.Cancel(ctx), "cancelled"
	case "next":
		err, message = c.Next(ctx), "moved to next item"
	case "previous":
		err, message = c.Previous(ctx), "moved to previous item"
	case "redo":
		err, message = c.Redo(ctx), "exercise restarted"
	case "play":
		err, message = c.PlayPrompt(ctx), "prompt playing"
	case "pause":
		c.PausePrompt()
		message = "prompt paused"
	case "resume":
		c.ResumePrompt()
		message = "prompt resumed"
	case "hint":
		message = c.RevealSecondary()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
	return c.respond(message, err)
}

func (c *Controller) respond(message string, err error) ipc.Response {
	snap := c.Snapshot()
	resp := ipc.Response{OK: err == nil, State: string(snap.Phase)}
	if data, marshalErr := json.Marshal(snap); marshalErr == nil {
		resp.Data = data
	}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Message = message
	return resp
}

// Conflict reports whether err rejects a command because of the current phase.
func Conflict(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrInvalidPhase) ||
		errors.Is(err, ErrNothingToCancel) ||
		errors.Is(err, playback.ErrCaptureActive)
}
