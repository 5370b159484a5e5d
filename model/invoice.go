package model

import (
	"time"

	"gorm.io/gorm"
)

// Invoice statuses
const (
	InvoiceStatusUnpaid  = "unpaid"
	InvoiceStatusWaiting = "waiting_confirmation"
	InvoiceStatusPaid    = "paid"
)

// Invoice represents one package purchase attempt with its own payment status.
// Student and package fields are snapshotted at creation time so historical
// invoices stay accurate when the package or profile changes later.
type Invoice struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Number string `gorm:"type:varchar(40);uniqueIndex;not null" json:"number"`
	UserID uint   `gorm:"not null;index" json:"user_id"`

	StudentName   string `gorm:"type:varchar(120);not null" json:"student_name"`
	StudentEmail  string `gorm:"type:varchar(254);not null" json:"student_email"`
	StudentPhone  string `gorm:"type:varchar(30)" json:"student_phone"`
	StudentSchool string `gorm:"type:varchar(120)" json:"student_school"`
	StudentGrade  string `gorm:"type:varchar(30)" json:"student_grade"`

	PackageID    uint   `gorm:"not null;index" json:"package_id"`
	PackageName  string `gorm:"type:varchar(120);not null" json:"package_name"`
	PackagePrice int64  `gorm:"not null" json:"package_price"`
	AdminFee     int64  `gorm:"not null" json:"admin_fee"`
	Total        int64  `gorm:"not null" json:"total"` // always PackagePrice + AdminFee

	Status   string `gorm:"type:varchar(30);not null;default:'unpaid';index" json:"status"`
	ProofURL string `gorm:"type:text" json:"proof_url,omitempty"`
	ProofKey string `gorm:"type:text" json:"-"` // storage key, for deletion on reject

	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // set only on confirmation
	ConfirmedBy *uint      `json:"confirmed_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}
