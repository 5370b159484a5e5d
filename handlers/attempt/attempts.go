package attempt

import (
	"errors"
	"strconv"

	"github.com/bimbelkita/bimbel-api/services/quiz"
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/bimbelkita/bimbel-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AttemptHandler handles quiz attempt submission and history
type AttemptHandler struct {
	db        *gorm.DB
	quiz      *quiz.Service
	validator *validation.Validator
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(db *gorm.DB, quizService *quiz.Service) *AttemptHandler {
	return &AttemptHandler{
		db:        db,
		quiz:      quizService,
		validator: validation.NewValidator(),
	}
}

// SubmitRequest maps question IDs to the chosen option position
type SubmitRequest struct {
	Answers map[uint]int `json:"answers" validate:"required"`
}

// Submit handles POST /api/v1/question-packages/:id/attempts (student with
// active subscription). Attempts are append-only; retaking a quiz adds a new
// row and never rewrites an old score.
func (h *AttemptHandler) Submit(c *fiber.Ctx) error {
	student, ok := middleware.GetUser(c)
	if !ok || student == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	packageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid package id")
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	attempt, err := h.quiz.SubmitAttempt(c.Context(), student.ID, uint(packageID), req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrPackageNotFound):
			return response.NotFound(c, "Question package not found")
		case errors.Is(err, quiz.ErrNoQuestions):
			return response.BadRequest(c, "Question package has no questions yet")
		default:
			return response.InternalServerError(c, "Failed to submit attempt")
		}
	}

	return response.Created(c, attempt)
}

// ListForPackage handles GET /api/v1/question-packages/:id/attempts/mine:
// the student's attempts on one package, newest first.
func (h *AttemptHandler) ListForPackage(c *fiber.Ctx) error {
	student, ok := middleware.GetUser(c)
	if !ok || student == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	packageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid package id")
	}

	attempts, err := h.quiz.ListAttempts(c.Context(), student.ID, uint(packageID))
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch attempts")
	}

	return response.Success(c, attempts)
}

// ListMine handles GET /api/v1/attempts/mine: the student's full attempt
// history across packages, newest first.
func (h *AttemptHandler) ListMine(c *fiber.Ctx) error {
	student, ok := middleware.GetUser(c)
	if !ok || student == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	attempts, err := h.quiz.ListAttempts(c.Context(), student.ID, 0)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch attempts")
	}

	return response.Success(c, attempts)
}
