package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"plate-service/internal/model"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetByPlate ищет машину по номеру без учёта регистра. (nil, nil), если не найдена.
func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	if plate == "" {
		return nil, nil
	}
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).
		Where("UPPER(plate_number) = UPPER(?)", plate).
		First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

type VehicleListFilter struct {
	Type       *model.VehicleType
	EmployeeID *uuid.UUID
	Active     *bool
}

func (r *VehicleRepository) List(ctx context.Context, filter VehicleListFilter) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	query := r.db.WithContext(ctx).Model(&model.Vehicle{}).Omit("photo")

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	if err := query.Order("plate_number ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *VehicleRepository) Count(ctx context.Context, vehicleType *model.VehicleType) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Vehicle{})
	if vehicleType != nil {
		query = query.Where("type = ?", *vehicleType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
