package subscription

import (
	subservice "github.com/bimbelkita/bimbel-api/services/subscription"
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// StatusHandler exposes the derived subscription state
type StatusHandler struct {
	subscription *subservice.Service
}

// NewStatusHandler creates a new subscription status handler
func NewStatusHandler(subscriptionService *subservice.Service) *StatusHandler {
	return &StatusHandler{subscription: subscriptionService}
}

// Status handles GET /api/v1/subscription: the caller's current state derived
// from their newest invoice, plus that invoice for display.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	status, err := h.subscription.CurrentStatus(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to derive subscription status")
	}

	return response.Success(c, status)
}
