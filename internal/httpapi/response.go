package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/dil-foundation/lms-web-app-sub004/internal/validate"
)

// Response is the JSON envelope for every view API reply.
type Response struct {
	StatusCode int    `json:"-"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      any    `json:"error,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func NewSuccess(msg string, data any) *Response {
	return &Response{
		Success:    true,
		Message:    msg,
		StatusCode: fiber.StatusOK,
		Data:       data,
	}
}

// NewFailed maps err to a status: *fiber.Error keeps its code, a
// *validate.FieldsError is a 400 carrying the field map, anything else is a
// 500 and is logged.
func NewFailed(msg string, err error, logger *slog.Logger) *Response {
	res := &Response{
		Success:    false,
		Message:    msg,
		StatusCode: fiber.StatusInternalServerError,
	}

	var fiberErr *fiber.Error
	var fields *validate.FieldsError
	switch {
	case errors.As(err, &fiberErr):
		res.StatusCode = fiberErr.Code
		if fiberErr.Message != "" {
			res.Error = fiberErr.Message
		}
	case errors.As(err, &fields):
		res.StatusCode = fiber.StatusBadRequest
		res.Error = fields.Fields
	case err != nil:
		res.Error = err.Error()
	}

	if logger != nil && res.StatusCode >= fiber.StatusInternalServerError {
		logger.Error(msg, "error", err)
	}
	return res
}

// WithData attaches data to a failed response.
func (r *Response) WithData(data any) *Response {
	r.Data = data
	return r
}

func (r *Response) Send(ctx *fiber.Ctx) error {
	return ctx.Status(r.StatusCode).JSON(r)
}
