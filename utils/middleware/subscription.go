package middleware

import (
	"github.com/bimbelkita/bimbel-api/model"
	"github.com/bimbelkita/bimbel-api/services/subscription"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// SubscriptionGate blocks students without an active subscription from paid
// features. Staff accounts pass through; the gate only meters students.
type SubscriptionGate struct {
	subscription *subscription.Service
}

// NewSubscriptionGate creates a subscription gate middleware
func NewSubscriptionGate(subscriptionService *subscription.Service) *SubscriptionGate {
	return &SubscriptionGate{subscription: subscriptionService}
}

// RequireActive returns a middleware that rejects locked students with 403.
// Must run after the auth middleware.
func (g *SubscriptionGate) RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetUser(c)
		if !ok || user == nil {
			return response.Unauthorized(c, "User not authenticated")
		}

		if user.Role != model.RoleStudent {
			return c.Next()
		}

		status, err := g.subscription.CurrentStatus(c.Context(), user.ID)
		if err != nil {
			return response.InternalServerError(c, "Failed to check subscription status")
		}
		if status.IsLocked {
			return response.Forbidden(c, "Please complete your payment to access this feature")
		}

		return c.Next()
	}
}
