package service

import (
	"context"

	"plate-service/internal/model"
	"plate-service/internal/repository"
)

// Stats: сводка для панели охраны.
type Stats struct {
	Vehicles     int64 `json:"vehicles"`
	Cars         int64 `json:"cars"`
	Motorcycles  int64 `json:"motorcycles"`
	Employees    int64 `json:"employees"`
	Dependencies int64 `json:"dependencies"`
}

type DirectoryService struct {
	vehicleRepo    *repository.VehicleRepository
	employeeRepo   *repository.EmployeeRepository
	dependencyRepo *repository.DependencyRepository
}

func NewDirectoryService(
	vehicleRepo *repository.VehicleRepository,
	employeeRepo *repository.EmployeeRepository,
	dependencyRepo *repository.DependencyRepository,
) *DirectoryService {
	return &DirectoryService{
		vehicleRepo:    vehicleRepo,
		employeeRepo:   employeeRepo,
		dependencyRepo: dependencyRepo,
	}
}

func (s *DirectoryService) Dependencies(ctx context.Context) ([]model.Dependency, error) {
	return s.dependencyRepo.List(ctx)
}

func (s *DirectoryService) Stats(ctx context.Context) (*Stats, error) {
	var (
		stats = &Stats{}
		err   error
	)
	car := model.VehicleTypeCar
	moto := model.VehicleTypeMotorcycle

	if stats.Vehicles, err = s.vehicleRepo.Count(ctx, nil); err != nil {
		return nil, err
	}
	if stats.Cars, err = s.vehicleRepo.Count(ctx, &car); err != nil {
		return nil, err
	}
	if stats.Motorcycles, err = s.vehicleRepo.Count(ctx, &moto); err != nil {
		return nil, err
	}
	if stats.Employees, err = s.employeeRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Dependencies, err = s.dependencyRepo.Count(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}
