package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecognitionEvent: запись журнала распознаваний на въезде.
type RecognitionEvent struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	RequestID    string     `gorm:"type:varchar(64);not null;index" json:"request_id"`
	Status       string     `gorm:"type:varchar(32);not null;index" json:"status"`
	Method       string     `gorm:"type:varchar(32)" json:"method,omitempty"`
	PlateNumber  string     `gorm:"type:varchar(16);index" json:"plate_number,omitempty"`
	DetectedText string     `gorm:"type:varchar(128)" json:"detected_text,omitempty"`
	VehicleID    *uuid.UUID `gorm:"type:char(36);index" json:"vehicle_id,omitempty"`
	ElapsedMS    int64      `gorm:"not null" json:"elapsed_ms"`
	DetectedAt   time.Time  `gorm:"not null;index" json:"detected_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (RecognitionEvent) TableName() string {
	return "recognition_events"
}

func (e *RecognitionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
