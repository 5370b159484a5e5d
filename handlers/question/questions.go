package question

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/bimbelkita/bimbel-api/model"
	"github.com/bimbelkita/bimbel-api/services/ai"
	"github.com/bimbelkita/bimbel-api/services/quiz"
	"github.com/bimbelkita/bimbel-api/services/spaces"
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/bimbelkita/bimbel-api/utils/uploads"
	"github.com/bimbelkita/bimbel-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionHandler handles question-package and question requests
type QuestionHandler struct {
	db        *gorm.DB
	quiz      *quiz.Service
	generator *ai.Client     // nil when AI generation is not configured
	storage   *spaces.Client // nil when Spaces is not configured
	validator *validation.Validator
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(db *gorm.DB, quizService *quiz.Service, generator *ai.Client, storage *spaces.Client) *QuestionHandler {
	return &QuestionHandler{
		db:        db,
		quiz:      quizService,
		generator: generator,
		storage:   storage,
		validator: validation.NewValidator(),
	}
}

// PackageRequest represents the body for creating/updating a question package
type PackageRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=160"`
	Subject string `json:"subject" validate:"required,min=2,max=120"`
	Level   string `json:"level" validate:"omitempty,max=60"`
}

// CreatePackage handles POST /api/v1/question-packages (teacher only)
func (h *QuestionHandler) CreatePackage(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	pkg := model.QuestionPackage{
		TeacherID: teacher.ID,
		Title:     validation.SanitizeString(req.Title),
		Subject:   validation.SanitizeString(req.Subject),
		Level:     req.Level,
	}
	if err := h.db.Create(&pkg).Error; err != nil {
		return response.InternalServerError(c, "Failed to create question package")
	}

	return response.Created(c, pkg)
}

// ListPackages handles GET /api/v1/question-packages. Students see every
// package; teachers can filter to their own with ?mine=true.
func (h *QuestionHandler) ListPackages(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	query := h.db.Model(&model.QuestionPackage{})
	if c.Query("mine") == "true" {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			return response.Unauthorized(c, "User not authenticated")
		}
		query = query.Where("teacher_id = ?", userID)
	}
	if subject := c.Query("subject"); subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count question packages")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var packages []model.QuestionPackage
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&packages).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch question packages")
	}

	return response.Paginated(c, packages, pagination)
}

// GetPackage handles GET /api/v1/question-packages/:id with questions and
// ordered options. The is_correct flags ride along for teachers reviewing the
// bank; the student-facing quiz UI is expected to hide them.
func (h *QuestionHandler) GetPackage(c *fiber.Ctx) error {
	packageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid package id")
	}

	pkg, err := h.quiz.GetPackage(c.Context(), uint(packageID))
	if err != nil {
		if errors.Is(err, quiz.ErrPackageNotFound) {
			return response.NotFound(c, "Question package not found")
		}
		return response.InternalServerError(c, "Failed to fetch question package")
	}

	return response.Success(c, pkg)
}

// UpdatePackage handles PUT /api/v1/question-packages/:id (owning teacher only)
func (h *QuestionHandler) UpdatePackage(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var pkg model.QuestionPackage
	if err := h.db.First(&pkg, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Question package not found")
		}
		return response.InternalServerError(c, "Failed to fetch question package")
	}
	if pkg.TeacherID != teacher.ID {
		return response.Forbidden(c, "You can only edit your own question packages")
	}

	var req PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	pkg.Title = validation.SanitizeString(req.Title)
	pkg.Subject = validation.SanitizeString(req.Subject)
	pkg.Level = req.Level

	if err := h.db.Save(&pkg).Error; err != nil {
		return response.InternalServerError(c, "Failed to update question package")
	}

	return response.Success(c, pkg)
}

// DeletePackage handles DELETE /api/v1/question-packages/:id (owning teacher
// only). Past attempts keep their scores; they reference the package by ID
// and survive the soft delete.
func (h *QuestionHandler) DeletePackage(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var pkg model.QuestionPackage
	if err := h.db.First(&pkg, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Question package not found")
		}
		return response.InternalServerError(c, "Failed to fetch question package")
	}
	if pkg.TeacherID != teacher.ID {
		return response.Forbidden(c, "You can only delete your own question packages")
	}

	if err := h.db.Delete(&pkg).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete question package")
	}

	return response.SuccessWithMessage(c, "Question package deleted", nil)
}

// QuestionRequest represents the body for adding/updating a question
type QuestionRequest struct {
	Text             string             `json:"text" validate:"required,min=3"`
	Explanation      string             `json:"explanation" validate:"omitempty"`
	ExplanationImage string             `json:"explanation_image" validate:"omitempty,url"`
	Options          []quiz.OptionInput `json:"options" validate:"required,min=2,dive"`
}

// AddQuestion handles POST /api/v1/question-packages/:id/questions (owning
// teacher only)
func (h *QuestionHandler) AddQuestion(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	packageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid package id")
	}

	var req QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	question, err := h.quiz.AddQuestion(c.Context(), uint(packageID), teacher.ID,
		req.Text, req.Explanation, req.ExplanationImage, req.Options)
	if err != nil {
		return h.mapQuizError(c, err, "Failed to add question")
	}

	return response.Created(c, question)
}

// UpdateQuestion handles PUT /api/v1/questions/:id (owning teacher only)
func (h *QuestionHandler) UpdateQuestion(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	questionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid question id")
	}

	var req QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	question, err := h.quiz.UpdateQuestion(c.Context(), uint(questionID), teacher.ID,
		req.Text, req.Explanation, req.ExplanationImage, req.Options)
	if err != nil {
		return h.mapQuizError(c, err, "Failed to update question")
	}

	return response.Success(c, question)
}

// DeleteQuestion handles DELETE /api/v1/questions/:id (owning teacher only)
func (h *QuestionHandler) DeleteQuestion(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	questionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid question id")
	}

	if err := h.quiz.DeleteQuestion(c.Context(), uint(questionID), teacher.ID); err != nil {
		return h.mapQuizError(c, err, "Failed to delete question")
	}

	return response.SuccessWithMessage(c, "Question deleted", nil)
}

// UploadExplanationImage handles POST /api/v1/questions/:id/explanation-image
// (owning teacher only). The image is stored first; the URL is recorded only
// after storage succeeded.
func (h *QuestionHandler) UploadExplanationImage(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.storage == nil {
		return response.InternalServerError(c, "File storage is not configured")
	}

	questionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid question id")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return response.BadRequest(c, "Missing image file")
	}

	result, err := uploads.ValidateImage(file)
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	key := fmt.Sprintf("questions/%d/%s%s", questionID, uuid.New().String(), filepath.Ext(file.Filename))
	imageURL, err := h.storage.UploadBytes(c.Context(), key, result.Content, result.ContentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to store image, please retry")
	}

	question, err := h.quiz.SetExplanationImage(c.Context(), uint(questionID), teacher.ID, imageURL)
	if err != nil {
		return h.mapQuizError(c, err, "Failed to record image")
	}

	return response.Success(c, question)
}

// GenerateRequest asks the AI generator for a batch of questions
type GenerateRequest struct {
	Topic string `json:"topic" validate:"required,min=2,max=200"`
	Count int    `json:"count" validate:"required,min=1,max=20"`
}

// Generate handles POST /api/v1/question-packages/:id/generate (owning
// teacher only). The generated batch is validated as a whole before any
// question is inserted; a single malformed item fails the request with
// nothing written.
func (h *QuestionHandler) Generate(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.generator == nil {
		return response.BadGateway(c, "Question generation is not configured")
	}

	packageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid package id")
	}

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	// Ownership check up front so we never bill an AI call for a package the
	// caller cannot write to
	var pkg model.QuestionPackage
	if err := h.db.First(&pkg, packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Question package not found")
		}
		return response.InternalServerError(c, "Failed to fetch question package")
	}
	if pkg.TeacherID != teacher.ID {
		return response.Forbidden(c, "You can only generate into your own question packages")
	}

	generated, err := h.generator.GenerateQuestions(c.Context(), req.Topic, pkg.Level, req.Count)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrEmptyGeneration), errors.Is(err, ai.ErrMalformedItem), errors.Is(err, ai.ErrNoJSONFound):
			return response.BadGateway(c, "Generator returned unusable questions, please retry")
		default:
			return response.BadGateway(c, "Question generation failed, please retry")
		}
	}

	inputs := make([]quiz.QuestionInput, 0, len(generated))
	for _, g := range generated {
		options := make([]quiz.OptionInput, 0, len(g.Options))
		for i, text := range g.Options {
			options = append(options, quiz.OptionInput{
				Text:      text,
				IsCorrect: i == g.CorrectAnswer,
			})
		}
		inputs = append(inputs, quiz.QuestionInput{
			Text:        g.Question,
			Explanation: g.Explanation,
			Options:     options,
		})
	}

	questions, err := h.quiz.AddQuestionBatch(c.Context(), uint(packageID), teacher.ID, inputs)
	if err != nil {
		return h.mapQuizError(c, err, "Failed to store generated questions")
	}

	return response.Created(c, questions)
}

func (h *QuestionHandler) mapQuizError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, quiz.ErrPackageNotFound):
		return response.NotFound(c, "Question package not found")
	case errors.Is(err, quiz.ErrQuestionNotFound):
		return response.NotFound(c, "Question not found")
	case errors.Is(err, quiz.ErrNotPackageOwner):
		return response.Forbidden(c, "You can only edit your own question packages")
	case errors.Is(err, quiz.ErrTooFewOptions), errors.Is(err, quiz.ErrCorrectCount):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, fallback)
	}
}
