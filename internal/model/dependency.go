package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dependency: подразделение, к которому относится сотрудник.
type Dependency struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
}

func (Dependency) TableName() string {
	return "dependencies"
}

func (d *Dependency) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
