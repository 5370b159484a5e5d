package auth

import (
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/bimbelkita/bimbel-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest represents editable profile fields
type UpdateProfileRequest struct {
	Name   string `json:"name" validate:"omitempty,min=2,max=120"`
	Phone  string `json:"phone" validate:"omitempty,max=30"`
	School string `json:"school" validate:"omitempty,max=120"`
	Grade  string `json:"grade" validate:"omitempty,max=30"`
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	return response.Success(c, toUserResponse(user))
}

// UpdateMe updates the authenticated user's profile fields. Profile edits do
// not rewrite snapshots on existing invoices.
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Name != "" {
		user.Name = validation.SanitizeString(req.Name)
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.School != "" {
		user.School = validation.SanitizeString(req.School)
	}
	if req.Grade != "" {
		user.Grade = req.Grade
	}

	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, toUserResponse(user))
}
