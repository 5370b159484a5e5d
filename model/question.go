package model

import (
	"time"

	"gorm.io/gorm"
)

// QuestionPackage groups multiple-choice questions authored by a teacher
type QuestionPackage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TeacherID uint           `gorm:"not null;index" json:"teacher_id"`
	Title     string         `gorm:"type:varchar(160);not null" json:"title"`
	Subject   string         `gorm:"type:varchar(120);not null" json:"subject"`
	Level     string         `gorm:"type:varchar(60)" json:"level"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Teacher   User       `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"-"`
	Questions []Question `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// TableName specifies the table name for QuestionPackage
func (QuestionPackage) TableName() string {
	return "question_packages"
}

// Question is a single multiple-choice question. Exactly one of its options
// must be marked correct; enforced at write time, not by schema.
type Question struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	PackageID        uint           `gorm:"not null;index" json:"package_id"`
	Text             string         `gorm:"type:text;not null" json:"text"`
	Explanation      string         `gorm:"type:text" json:"explanation,omitempty"`
	ExplanationImage string         `gorm:"type:text" json:"explanation_image,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Options []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// TableName specifies the table name for Question
func (Question) TableName() string {
	return "questions"
}

// QuestionOption is one answer choice, ordered by Position within a question
type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Position   int    `gorm:"not null" json:"position"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
}

// TableName specifies the table name for QuestionOption
func (QuestionOption) TableName() string {
	return "question_options"
}

// CorrectIndex returns the position of the correct option, or -1 when the
// question is malformed.
func (q *Question) CorrectIndex() int {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.Position
		}
	}
	return -1
}
