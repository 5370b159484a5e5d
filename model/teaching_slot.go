package model

import (
	"time"

	"gorm.io/gorm"
)

// TeachingSlot statuses
const (
	SlotStatusOpen   = "open"
	SlotStatusBooked = "booked"
)

// TeachingSlot is a fixed time interval offered by a teacher for one student.
// Invariant: Status is booked iff a registered student or a manual name is
// assigned; open iff neither.
type TeachingSlot struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TeacherID uint   `gorm:"not null;index" json:"teacher_id"`
	Subject   string `gorm:"type:varchar(120);not null" json:"subject"`

	StartsAt time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"` // always after StartsAt

	Status      string `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	StudentID   *uint  `gorm:"index" json:"student_id,omitempty"`
	StudentName string `gorm:"type:varchar(120)" json:"student_name,omitempty"` // manual, non-registered assignee

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Teacher User  `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"-"`
	Student *User `gorm:"foreignKey:StudentID" json:"-"`
}

// TableName specifies the table name for TeachingSlot
func (TeachingSlot) TableName() string {
	return "teaching_slots"
}

// IsAssigned reports whether any student (registered or manual) holds the slot.
func (s *TeachingSlot) IsAssigned() bool {
	return s.StudentID != nil || s.StudentName != ""
}

// IsLive reports whether now falls within [StartsAt, EndsAt).
func (s *TeachingSlot) IsLive(now time.Time) bool {
	return !now.Before(s.StartsAt) && now.Before(s.EndsAt)
}
