package handlers

import (
	"errors"
	"log/slog"

	"github.com/gabriel/manhwa-hub/backend/internal/account"
	"github.com/gabriel/manhwa-hub/backend/internal/content"
	"github.com/gabriel/manhwa-hub/backend/internal/extract"
	"github.com/gabriel/manhwa-hub/backend/internal/fetch"
	"github.com/gofiber/fiber/v2"
)

// fail renders err as {ok:false, error}. Only known error classes expose
// their message; everything else is reported as an internal error.
func fail(c *fiber.Ctx, err error) error {
	status, message := classify(err)
	if status >= fiber.StatusInternalServerError {
		slog.Warn("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"ok": false, "error": message})
}

func failWith(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"ok": false, "error": message})
}

func classify(err error) (int, string) {
	var fetchErr *fetch.FetchError
	switch {
	case errors.Is(err, content.ErrInvalidInput),
		errors.Is(err, extract.ErrInvalidSlug),
		errors.Is(err, account.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, account.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, account.ErrInvalidCredentials.Error()
	case errors.Is(err, account.ErrInvalidToken):
		return fiber.StatusUnauthorized, account.ErrInvalidToken.Error()
	case errors.Is(err, account.ErrDuplicateUsername):
		return fiber.StatusConflict, account.ErrDuplicateUsername.Error()
	case errors.Is(err, content.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, extract.ErrUpstreamUnavailable), errors.As(err, &fetchErr):
		return fiber.StatusBadGateway, extract.ErrUpstreamUnavailable.Error()
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}
