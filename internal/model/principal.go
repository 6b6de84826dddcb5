package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleGuard UserRole = "GUARD"
)

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsGuard() bool {
	return p.Role == UserRoleGuard
}
