package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"plate-service/internal/model"
)

const (
	defaultJournalLimit = 100
	maxJournalLimit     = 1000
)

type RecognitionEventRepository struct {
	db *gorm.DB
}

func NewRecognitionEventRepository(db *gorm.DB) *RecognitionEventRepository {
	return &RecognitionEventRepository{db: db}
}

func (r *RecognitionEventRepository) Create(ctx context.Context, event *model.RecognitionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

type RecognitionEventFilter struct {
	Status      *string
	PlateNumber string
	From        *time.Time
	To          *time.Time
	Limit       int
}

// List возвращает журнал от новых записей к старым.
func (r *RecognitionEventRepository) List(ctx context.Context, filter RecognitionEventFilter) ([]model.RecognitionEvent, error) {
	var events []model.RecognitionEvent
	query := r.db.WithContext(ctx).Model(&model.RecognitionEvent{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PlateNumber != "" {
		query = query.Where("UPPER(plate_number) = UPPER(?)", filter.PlateNumber)
	}
	if filter.From != nil {
		query = query.Where("detected_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("detected_at <= ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	if limit > maxJournalLimit {
		limit = maxJournalLimit
	}

	if err := query.Order("detected_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
