package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Package represents a purchasable subscription package
type Package struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"type:varchar(120);not null" json:"title"`
	Price     int64          `gorm:"not null" json:"price"` // integer rupiah
	Features  datatypes.JSON `gorm:"type:jsonb" json:"features"`
	Color     string         `gorm:"type:varchar(30)" json:"color"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Package
func (Package) TableName() string {
	return "packages"
}
