package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

type popularClock interface {
	RefreshedAt() time.Time
}

type HealthHandler struct {
	db      *sql.DB
	popular popularClock
}

func NewHealthHandler(db *sql.DB, popular popularClock) *HealthHandler {
	return &HealthHandler{db: db, popular: popular}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	now := time.Now().UTC()
	payload := fiber.Map{
		"ok":     true,
		"status": "ok",
		"db":     "up",
		"time":   now.Format(time.RFC3339),
	}

	if h.popular != nil {
		if refreshed := h.popular.RefreshedAt(); !refreshed.IsZero() {
			payload["popularAgeSeconds"] = int64(now.Sub(refreshed).Seconds())
		} else {
			payload["popularAgeSeconds"] = nil
		}
	}

	if err := h.db.PingContext(c.UserContext()); err != nil {
		payload["ok"] = false
		payload["status"] = "degraded"
		payload["db"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(payload)
	}

	return c.JSON(payload)
}
