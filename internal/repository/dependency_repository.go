package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"plate-service/internal/model"
)

type DependencyRepository struct {
	db *gorm.DB
}

func NewDependencyRepository(db *gorm.DB) *DependencyRepository {
	return &DependencyRepository{db: db}
}

func (r *DependencyRepository) Create(ctx context.Context, dependency *model.Dependency) error {
	return r.db.WithContext(ctx).Create(dependency).Error
}

func (r *DependencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Dependency, error) {
	var dependency model.Dependency
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dependency).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dependency, nil
}

func (r *DependencyRepository) List(ctx context.Context) ([]model.Dependency, error) {
	var dependencies []model.Dependency
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&dependencies).Error; err != nil {
		return nil, err
	}
	return dependencies, nil
}

func (r *DependencyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Dependency{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
