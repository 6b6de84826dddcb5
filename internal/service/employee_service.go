package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"plate-service/internal/model"
	"plate-service/internal/repository"
)

type EmployeeService struct {
	employeeRepo   *repository.EmployeeRepository
	dependencyRepo *repository.DependencyRepository
}

func NewEmployeeService(employeeRepo *repository.EmployeeRepository, dependencyRepo *repository.DependencyRepository) *EmployeeService {
	return &EmployeeService{
		employeeRepo:   employeeRepo,
		dependencyRepo: dependencyRepo,
	}
}

type EmployeeInput struct {
	Document     string
	FirstName    string
	LastName     string
	DependencyID string
	Photo        []byte
}

type employeeFields struct {
	document     string
	firstName    string
	lastName     string
	dependencyID *uuid.UUID
}

func (s *EmployeeService) Register(ctx context.Context, principal model.Principal, input EmployeeInput) (*model.Employee, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	fields, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	taken, err := s.employeeRepo.DocumentTaken(ctx, fields.document, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	employee := &model.Employee{
		Document:     fields.document,
		FirstName:    fields.firstName,
		LastName:     fields.lastName,
		DependencyID: fields.dependencyID,
		Photo:        input.Photo,
		Active:       true,
	}
	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (s *EmployeeService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input EmployeeInput) (*model.Employee, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	employee, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	fields, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	taken, err := s.employeeRepo.DocumentTaken(ctx, fields.document, &employee.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	employee.Document = fields.document
	employee.FirstName = fields.firstName
	employee.LastName = fields.lastName
	employee.DependencyID = fields.dependencyID
	// если фото не передано, оставляем прежнее
	if len(input.Photo) > 0 {
		employee.Photo = input.Photo
	}

	if err := s.employeeRepo.Update(ctx, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (s *EmployeeService) SetActive(ctx context.Context, principal model.Principal, id uuid.UUID, active bool) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}

	changed, err := s.employeeRepo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotFound
	}
	return nil
}

func (s *EmployeeService) List(ctx context.Context) ([]model.Employee, error) {
	return s.employeeRepo.List(ctx)
}

func (s *EmployeeService) validate(ctx context.Context, input EmployeeInput) (*employeeFields, error) {
	fields := &employeeFields{
		document:  strings.TrimSpace(input.Document),
		firstName: strings.TrimSpace(input.FirstName),
		lastName:  strings.TrimSpace(input.LastName),
	}
	if !isDigits(fields.document) || fields.firstName == "" || fields.lastName == "" {
		return nil, ErrInvalidInput
	}

	if input.DependencyID == "" {
		return fields, nil
	}
	dependencyID, err := uuid.Parse(input.DependencyID)
	if err != nil {
		return nil, ErrInvalidInput
	}
	dependency, err := s.dependencyRepo.GetByID(ctx, dependencyID)
	if err != nil {
		return nil, err
	}
	if dependency == nil {
		return nil, ErrNotFound
	}
	fields.dependencyID = &dependency.ID
	return fields, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
