// Package httpapi serves the practice engine as a JSON view API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/session"
)

// Engine is the session surface the view API drives.
type Engine interface {
	Snapshot() session.Snapshot
	Items() []practice.Item
	StartRecording(context.Context) error
	StopRecording(context.Context) error
	Toggle(context.Context) error
	Cancel(context.Context) error
	Next(context.Context) error
	Previous(context.Context) error
	Redo(context.Context) error
	PlayPrompt(context.Context) error
	RevealSecondary() string
}

// Handler serves the view API routes.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

func NewHandler(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// GET /api/state
func (h *Handler) State(ctx *fiber.Ctx) error {
	return NewSuccess("session state", h.engine.Snapshot()).Send(ctx)
}

// GET /api/items
func (h *Handler) Items(ctx *fiber.Ctx) error {
	return NewSuccess("exercise items", h.engine.Items()).Send(ctx)
}

// POST /api/hint
func (h *Handler) Hint(ctx *fiber.Ctx) error {
	return NewSuccess("secondary text", fiber.Map{"secondary": h.engine.RevealSecondary()}).Send(ctx)
}

func (h *Handler) Start(ctx *fiber.Ctx) error {
	return h.command(ctx, "recording started", h.engine.StartRecording)
}

func (h *Handler) Stop(ctx *fiber.Ctx) error {
	return h.command(ctx, "stop requested", h.engine.StopRecording)
}

func (h *Handler) Toggle(ctx *fiber.Ctx) error {
	return h.command(ctx, "toggled", h.engine.Toggle)
}

func (h *Handler) Cancel(ctx *fiber.Ctx) error {
	return h.command(ctx, "cancelled", h.engine.Cancel)
}

func (h *Handler) Next(ctx *fiber.Ctx) error {
	return h.command(ctx, "moved to next item", h.engine.Next)
}

func (h *Handler) Previous(ctx *fiber.Ctx) error {
	return h.command(ctx, "moved to previous item", h.engine.Previous)
}

func (h *Handler) Redo(ctx *fiber.Ctx) error {
	return h.command(ctx, "exercise restarted", h.engine.Redo)
}

func (h *Handler) Play(ctx *fiber.Ctx) error {
	return h.command(ctx, "prompt playing", h.engine.PlayPrompt)
}

// command runs fn and replies with the resulting snapshot either way.
func (h *Handler) command(ctx *fiber.Ctx, msg string, fn func(context.Context) error) error {
	if err := fn(ctx.UserContext()); err != nil {
		return NewFailed("command rejected", statusError(err), h.logger).
			WithData(h.engine.Snapshot()).
			Send(ctx)
	}
	return NewSuccess(msg, h.engine.Snapshot()).Send(ctx)
}

// statusError maps engine errors to HTTP statuses.
func statusError(err error) error {
	switch {
	case session.Conflict(err):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotLoaded):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, practice.ErrPermission):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, practice.ErrPlayback):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return err
}
