package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/example/benmarket/internal/events"
	"github.com/example/benmarket/internal/loyalty"
	"github.com/example/benmarket/internal/store"
)

// EventPublisher accepts domain events without blocking.
type EventPublisher interface {
	Publish(evt events.Event) bool
}

// ErrorHandler renders every error as {"success": false, "error": msg}.
// Domain sentinels map to client statuses; anything else is a logged 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func statusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, loyalty.ErrInvalidPoints),
		errors.Is(err, loyalty.ErrInsufficientPoints),
		errors.Is(err, loyalty.ErrInvalidProgram):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, loyalty.ErrProgramNotFound),
		errors.Is(err, loyalty.ErrAccountNotFound),
		errors.Is(err, loyalty.ErrReferralNotFound),
		errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrConflict):
		return fiber.StatusConflict, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
