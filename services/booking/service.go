package booking

import (
	"context"
	"errors"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
	"gorm.io/gorm"
)

var (
	ErrSlotNotFound   = errors.New("slot not found")
	ErrSlotTaken      = errors.New("slot already taken")
	ErrNotSlotOwner   = errors.New("slot belongs to another teacher")
	ErrNotBookedByYou = errors.New("slot is not booked by this student")
	ErrInvalidWindow  = errors.New("slot end must be after start")
)

// Service owns teaching-slot creation, booking and cancellation. Booking is a
// conditional write: the update only matches rows still open, so two students
// racing for one slot cannot both win.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateSlot creates a single slot. A pre-assigned student (registered ID or
// free-text name) makes the slot booked from the start.
func (s *Service) CreateSlot(ctx context.Context, teacherID uint, subject string, start time.Time, duration time.Duration, studentID *uint, studentName string) (*model.TeachingSlot, error) {
	if duration <= 0 {
		return nil, ErrInvalidWindow
	}

	slot := &model.TeachingSlot{
		TeacherID:   teacherID,
		Subject:     subject,
		StartsAt:    start,
		EndsAt:      start.Add(duration),
		Status:      model.SlotStatusOpen,
		StudentID:   studentID,
		StudentName: studentName,
	}
	if slot.IsAssigned() {
		slot.Status = model.SlotStatusBooked
	}

	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

// CreateRecurring generates one week of open slots: for each selected
// weekday, every non-overlapping slot of the given duration inside the daily
// window, anchored to the next date (today counts) matching that weekday.
func (s *Service) CreateRecurring(ctx context.Context, teacherID uint, subject string, weekdays []time.Weekday, windowStart, windowEnd string, duration time.Duration) ([]model.TeachingSlot, error) {
	starts, err := GenerateWeeklySlots(time.Now(), weekdays, windowStart, windowEnd, duration)
	if err != nil {
		return nil, err
	}

	slots := make([]model.TeachingSlot, 0, len(starts))
	for _, start := range starts {
		slots = append(slots, model.TeachingSlot{
			TeacherID: teacherID,
			Subject:   subject,
			StartsAt:  start,
			EndsAt:    start.Add(duration),
			Status:    model.SlotStatusOpen,
		})
	}
	if len(slots) == 0 {
		return slots, nil
	}

	if err := s.db.WithContext(ctx).Create(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// Book claims an open slot for a student. The write is conditioned on the
// slot still being open at write time; zero rows affected means somebody else
// got there first and the caller must re-fetch.
func (s *Service) Book(ctx context.Context, slotID uint, student *model.User) (*model.TeachingSlot, error) {
	res := s.db.WithContext(ctx).
		Model(&model.TeachingSlot{}).
		Where("id = ? AND status = ?", slotID, model.SlotStatusOpen).
		Updates(map[string]interface{}{
			"status":       model.SlotStatusBooked,
			"student_id":   student.ID,
			"student_name": "",
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.getSlot(ctx, slotID); err != nil {
			return nil, err
		}
		return nil, ErrSlotTaken
	}

	return s.getSlot(ctx, slotID)
}

// Cancel releases a student's own booking. Conditioned on the booking still
// belonging to the student, so a teacher reassignment in between is not
// silently undone.
func (s *Service) Cancel(ctx context.Context, slotID, studentID uint) (*model.TeachingSlot, error) {
	res := s.db.WithContext(ctx).
		Model(&model.TeachingSlot{}).
		Where("id = ? AND status = ? AND student_id = ?", slotID, model.SlotStatusBooked, studentID).
		Updates(map[string]interface{}{
			"status":       model.SlotStatusOpen,
			"student_id":   nil,
			"student_name": "",
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.getSlot(ctx, slotID); err != nil {
			return nil, err
		}
		return nil, ErrNotBookedByYou
	}

	return s.getSlot(ctx, slotID)
}

// UpdateSlot lets the owning teacher edit subject/times and reassign or clear
// the student. Status is kept consistent with the assignee fields.
func (s *Service) UpdateSlot(ctx context.Context, slotID, teacherID uint, subject string, start, end time.Time, studentID *uint, studentName string) (*model.TeachingSlot, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}

	slot, err := s.getSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.TeacherID != teacherID {
		return nil, ErrNotSlotOwner
	}

	slot.Subject = subject
	slot.StartsAt = start
	slot.EndsAt = end
	slot.StudentID = studentID
	slot.StudentName = studentName
	if slot.IsAssigned() {
		slot.Status = model.SlotStatusBooked
	} else {
		slot.Status = model.SlotStatusOpen
	}

	if err := s.db.WithContext(ctx).Save(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

// DeleteSlot removes a slot owned by the teacher.
func (s *Service) DeleteSlot(ctx context.Context, slotID, teacherID uint) error {
	slot, err := s.getSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.TeacherID != teacherID {
		return ErrNotSlotOwner
	}
	return s.db.WithContext(ctx).Delete(&model.TeachingSlot{}, slotID).Error
}

// ListByTeacher returns a teacher's slots ordered by start time.
func (s *Service) ListByTeacher(ctx context.Context, teacherID uint) ([]model.TeachingSlot, error) {
	var slots []model.TeachingSlot
	err := s.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("starts_at ASC").
		Find(&slots).Error
	return slots, err
}

// ListBookedByStudent returns the slots a student currently holds.
func (s *Service) ListBookedByStudent(ctx context.Context, studentID uint) ([]model.TeachingSlot, error) {
	var slots []model.TeachingSlot
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, model.SlotStatusBooked).
		Order("starts_at ASC").
		Find(&slots).Error
	return slots, err
}

func (s *Service) getSlot(ctx context.Context, slotID uint) (*model.TeachingSlot, error) {
	var slot model.TeachingSlot
	if err := s.db.WithContext(ctx).First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}
