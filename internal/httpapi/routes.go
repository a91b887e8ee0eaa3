package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 3 * time.Second

// New builds the fiber app with every view API route registered.
func New(engine Engine, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "recite",
		DisableStartupMessage: true,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return NewFailed("request failed", err, logger).Send(ctx)
		},
	})
	app.Use(recover.New())
	app.Use(requestLogger(logger))

	Setup(app, NewHandler(engine, logger))
	return app
}

// Setup registers the routes on api.
func Setup(api *fiber.App, h *Handler) {
	router := api.Group("/api")
	{
		router.Get("/state", h.State)
		router.Get("/items", h.Items)
		router.Post("/hint", h.Hint)
		router.Post("/toggle", h.Toggle)
		router.Post("/cancel", h.Cancel)
		router.Post("/next", h.Next)
		router.Post("/previous", h.Previous)
		router.Post("/redo", h.Redo)
		router.Post("/play", h.Play)
	}

	recording := router.Group("/recording")
	{
		recording.Post("/start", h.Start)
		recording.Post("/stop", h.Stop)
	}
}

// Serve listens on addr until ctx is canceled.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(addr) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return <-errCh
	}
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		if logger != nil {
			logger.Debug("http request",
				"method", ctx.Method(),
				"path", ctx.Path(),
				"status", ctx.Response().StatusCode(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
		return err
	}
}
