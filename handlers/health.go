package handlers

import (
	"time"

	"github.com/bimbelkita/bimbel-api/database"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports process and database liveness
type HealthHandler struct {
	store     *database.GORMStore
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *database.GORMStore) *HealthHandler {
	return &HealthHandler{
		store:     store,
		startedAt: time.Now(),
	}
}

// Check handles GET /ping
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.store.HealthCheck(); err != nil {
		dbStatus = "unreachable"
	}

	payload := fiber.Map{
		"status":   "ok",
		"database": dbStatus,
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
	}
	if dbStatus != "ok" {
		payload["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(payload)
	}

	return response.Success(c, payload)
}
