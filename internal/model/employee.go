package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Document     string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"document"`
	FirstName    string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string     `gorm:"type:varchar(100);not null" json:"last_name"`
	DependencyID *uuid.UUID `gorm:"type:char(36);index" json:"dependency_id"`
	Photo        []byte     `json:"photo,omitempty"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}
