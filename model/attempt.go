package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt is one scored submission of answers to a question package.
// Attempts are append-only history; rows are never updated after creation.
type QuizAttempt struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	StudentID uint           `gorm:"not null;index" json:"student_id"`
	PackageID uint           `gorm:"not null;index" json:"package_id"`
	Score     float64        `gorm:"not null" json:"score"`             // 0-100, stored unrounded
	Answers   datatypes.JSON `gorm:"type:jsonb;not null" json:"answers"` // question id -> chosen option index
	CreatedAt time.Time      `json:"created_at"`

	// Relationships
	Student User            `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Package QuestionPackage `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for QuizAttempt
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
