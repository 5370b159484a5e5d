package slot

import (
	"errors"
	"strconv"
	"time"

	"github.com/bimbelkita/bimbel-api/services/booking"
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/bimbelkita/bimbel-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SlotHandler handles teaching-slot requests
type SlotHandler struct {
	db        *gorm.DB
	booking   *booking.Service
	validator *validation.Validator
}

// NewSlotHandler creates a new slot handler
func NewSlotHandler(db *gorm.DB, bookingService *booking.Service) *SlotHandler {
	return &SlotHandler{
		db:        db,
		booking:   bookingService,
		validator: validation.NewValidator(),
	}
}

// CreateSlotRequest represents a single-slot creation request
type CreateSlotRequest struct {
	Subject         string    `json:"subject" validate:"required,min=2,max=120"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=15,max=480"`
	StudentID       *uint     `json:"student_id" validate:"omitempty,min=1"`
	StudentName     string    `json:"student_name" validate:"omitempty,max=120"` // manual, non-registered assignee
}

// CreateSlot handles POST /api/v1/slots (teacher only)
func (h *SlotHandler) CreateSlot(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	slot, err := h.booking.CreateSlot(c.Context(), teacher.ID,
		validation.SanitizeString(req.Subject),
		req.StartsAt,
		time.Duration(req.DurationMinutes)*time.Minute,
		req.StudentID,
		validation.SanitizeString(req.StudentName))
	if err != nil {
		if errors.Is(err, booking.ErrInvalidWindow) {
			return response.BadRequest(c, "Slot duration must be positive")
		}
		return response.InternalServerError(c, "Failed to create slot")
	}

	return response.Created(c, slot)
}

// CreateRecurringRequest represents a weekly-recurring slot creation request
type CreateRecurringRequest struct {
	Subject         string   `json:"subject" validate:"required,min=2,max=120"`
	Weekdays        []string `json:"weekdays" validate:"required,min=1,dive,oneof=Sunday Monday Tuesday Wednesday Thursday Friday Saturday"`
	WindowStart     string   `json:"window_start" validate:"required"` // HH:MM
	WindowEnd       string   `json:"window_end" validate:"required"`   // HH:MM
	DurationMinutes int      `json:"duration_minutes" validate:"required,min=15,max=480"`
}

var weekdayByName = map[string]time.Weekday{
	"Sunday": time.Sunday, "Monday": time.Monday, "Tuesday": time.Tuesday,
	"Wednesday": time.Wednesday, "Thursday": time.Thursday,
	"Friday": time.Friday, "Saturday": time.Saturday,
}

// CreateRecurring handles POST /api/v1/slots/recurring (teacher only)
func (h *SlotHandler) CreateRecurring(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateRecurringRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, name := range req.Weekdays {
		weekdays = append(weekdays, weekdayByName[name])
	}

	slots, err := h.booking.CreateRecurring(c.Context(), teacher.ID,
		validation.SanitizeString(req.Subject),
		weekdays, req.WindowStart, req.WindowEnd,
		time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBadTimeOfDay):
			return response.BadRequest(c, "Window times must be in HH:MM format")
		case errors.Is(err, booking.ErrInvalidWindow):
			return response.BadRequest(c, "Slot duration must be positive")
		default:
			return response.InternalServerError(c, "Failed to create slots")
		}
	}

	return response.Created(c, slots)
}

// Book handles PUT /api/v1/slots/:id/book (student with active subscription).
// Losing a race for the slot is a 409; the client must re-fetch.
func (h *SlotHandler) Book(c *fiber.Ctx) error {
	student, ok := middleware.GetUser(c)
	if !ok || student == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	slotID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid slot id")
	}

	slot, err := h.booking.Book(c.Context(), uint(slotID), student)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotNotFound):
			return response.NotFound(c, "Slot not found")
		case errors.Is(err, booking.ErrSlotTaken):
			return response.Conflict(c, "Slot already taken, please refresh and pick another")
		default:
			return response.InternalServerError(c, "Failed to book slot")
		}
	}

	return response.Success(c, slot)
}

// Cancel handles PUT /api/v1/slots/:id/cancel (student, own booking only)
func (h *SlotHandler) Cancel(c *fiber.Ctx) error {
	student, ok := middleware.GetUser(c)
	if !ok || student == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	slotID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid slot id")
	}

	slot, err := h.booking.Cancel(c.Context(), uint(slotID), student.ID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotNotFound):
			return response.NotFound(c, "Slot not found")
		case errors.Is(err, booking.ErrNotBookedByYou):
			return response.Forbidden(c, "You can only cancel your own booking")
		default:
			return response.InternalServerError(c, "Failed to cancel booking")
		}
	}

	return response.Success(c, slot)
}

// UpdateSlotRequest represents a teacher's slot edit
type UpdateSlotRequest struct {
	Subject     string    `json:"subject" validate:"required,min=2,max=120"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
	StudentID   *uint     `json:"student_id" validate:"omitempty,min=1"`
	StudentName string    `json:"student_name" validate:"omitempty,max=120"`
}

// UpdateSlot handles PUT /api/v1/slots/:id (owning teacher only)
func (h *SlotHandler) UpdateSlot(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	slotID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid slot id")
	}

	var req UpdateSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	slot, err := h.booking.UpdateSlot(c.Context(), uint(slotID), teacher.ID,
		validation.SanitizeString(req.Subject), req.StartsAt, req.EndsAt,
		req.StudentID, validation.SanitizeString(req.StudentName))
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotNotFound):
			return response.NotFound(c, "Slot not found")
		case errors.Is(err, booking.ErrNotSlotOwner):
			return response.Forbidden(c, "You can only edit your own slots")
		case errors.Is(err, booking.ErrInvalidWindow):
			return response.BadRequest(c, "Slot end must be after start")
		default:
			return response.InternalServerError(c, "Failed to update slot")
		}
	}

	return response.Success(c, slot)
}

// DeleteSlot handles DELETE /api/v1/slots/:id (owning teacher only)
func (h *SlotHandler) DeleteSlot(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	slotID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid slot id")
	}

	if err := h.booking.DeleteSlot(c.Context(), uint(slotID), teacher.ID); err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotNotFound):
			return response.NotFound(c, "Slot not found")
		case errors.Is(err, booking.ErrNotSlotOwner):
			return response.Forbidden(c, "You can only delete your own slots")
		default:
			return response.InternalServerError(c, "Failed to delete slot")
		}
	}

	return response.SuccessWithMessage(c, "Slot deleted", nil)
}

// ListSlots handles GET /api/v1/slots?teacher_id=N, grouped by weekday name
// for calendar-style display
func (h *SlotHandler) ListSlots(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseUint(c.Query("teacher_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "teacher_id query parameter is required")
	}

	slots, err := h.booking.ListByTeacher(c.Context(), uint(teacherID))
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch slots")
	}

	return response.Success(c, booking.GroupByWeekday(slots, time.Now()))
}

// ListMine handles GET /api/v1/slots/mine (teacher's own calendar)
func (h *SlotHandler) ListMine(c *fiber.Ctx) error {
	teacher, ok := middleware.GetUser(c)
	if !ok || teacher == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	slots, err := h.booking.ListByTeacher(c.Context(), teacher.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch slots")
	}

	return response.Success(c, booking.GroupByWeekday(slots, time.Now()))
}

// ListBooked handles GET /api/v1/slots/booked (student's own bookings)
func (h *SlotHandler) ListBooked(c *fiber.Ctx) error {
	student, ok := middleware.GetUser(c)
	if !ok || student == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	slots, err := h.booking.ListBookedByStudent(c.Context(), student.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch bookings")
	}

	return response.Success(c, booking.GroupByWeekday(slots, time.Now()))
}
