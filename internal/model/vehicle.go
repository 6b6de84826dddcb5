package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VehicleType string

const (
	VehicleTypeCar        VehicleType = "CARRO"
	VehicleTypeMotorcycle VehicleType = "MOTO"
)

func (t VehicleType) Valid() bool {
	return t == VehicleTypeCar || t == VehicleTypeMotorcycle
}

type Vehicle struct {
	ID          uuid.UUID   `gorm:"type:char(36);primaryKey" json:"id"`
	EmployeeID  uuid.UUID   `gorm:"type:char(36);not null;index" json:"employee_id"`
	PlateNumber string      `gorm:"type:varchar(16);uniqueIndex;not null" json:"plate_number"`
	Brand       string      `gorm:"type:varchar(64)" json:"brand"`
	Model       string      `gorm:"type:varchar(64)" json:"model"`
	Type        VehicleType `gorm:"type:varchar(16);not null;index" json:"type"`
	Color       string      `gorm:"type:varchar(32)" json:"color"`
	Photo       []byte      `json:"photo,omitempty"`
	Active      bool        `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
