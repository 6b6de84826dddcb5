package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"plate-service/internal/model"
	"plate-service/internal/plate"
	"plate-service/internal/repository"
	"plate-service/internal/utils"
)

// VehicleCache сбрасывает закэшированный результат поиска по номеру.
type VehicleCache interface {
	Invalidate(plate string)
}

type VehicleService struct {
	vehicleRepo  *repository.VehicleRepository
	employeeRepo *repository.EmployeeRepository
	cache        VehicleCache
}

func NewVehicleService(
	vehicleRepo *repository.VehicleRepository,
	employeeRepo *repository.EmployeeRepository,
	cache VehicleCache,
) *VehicleService {
	return &VehicleService{
		vehicleRepo:  vehicleRepo,
		employeeRepo: employeeRepo,
		cache:        cache,
	}
}

type RegisterVehicleInput struct {
	EmployeeID  string
	PlateNumber string
	Brand       string
	Model       string
	Type        string
	Color       string
	Photo       []byte
}

func (s *VehicleService) Register(ctx context.Context, principal model.Principal, input RegisterVehicleInput) (*model.Vehicle, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	employeeID, err := uuid.Parse(input.EmployeeID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	plateNumber, err := plate.Validate(input.PlateNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	vehicleType := model.VehicleType(strings.ToUpper(strings.TrimSpace(input.Type)))
	if !vehicleType.Valid() {
		return nil, ErrInvalidInput
	}

	employee, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	existing, err := s.vehicleRepo.GetByPlate(ctx, plateNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	vehicle := &model.Vehicle{
		EmployeeID:  employee.ID,
		PlateNumber: plateNumber,
		Brand:       strings.TrimSpace(input.Brand),
		Model:       strings.TrimSpace(input.Model),
		Type:        vehicleType,
		Color:       strings.TrimSpace(input.Color),
		Photo:       input.Photo,
		Active:      true,
	}
	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	// промах по этому номеру мог остаться в кэше
	if s.cache != nil {
		s.cache.Invalidate(plateNumber)
	}
	return vehicle, nil
}

func (s *VehicleService) Get(ctx context.Context, plateText string) (*model.Vehicle, error) {
	normalized := utils.NormalizePlate(plateText)
	if normalized == "" {
		return nil, ErrInvalidInput
	}

	vehicle, err := s.vehicleRepo.GetByPlate(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, ErrNotFound
	}
	return vehicle, nil
}

type ListVehiclesInput struct {
	Type       string
	EmployeeID string
	Active     *bool
}

func (s *VehicleService) List(ctx context.Context, input ListVehiclesInput) ([]model.Vehicle, error) {
	filter := repository.VehicleListFilter{Active: input.Active}

	if input.Type != "" {
		vehicleType := model.VehicleType(strings.ToUpper(input.Type))
		if !vehicleType.Valid() {
			return nil, ErrInvalidInput
		}
		filter.Type = &vehicleType
	}
	if input.EmployeeID != "" {
		employeeID, err := uuid.Parse(input.EmployeeID)
		if err != nil {
			return nil, ErrInvalidInput
		}
		filter.EmployeeID = &employeeID
	}

	return s.vehicleRepo.List(ctx, filter)
}
