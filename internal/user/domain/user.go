package domain

import (
	"errors"
	"time"
)

// User is the core user entity. TenantID is immutable after creation: a user
// never migrates tenants.
type User struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	// EnabledModules optionally narrows the tenant's module set for this user.
	// Empty means no narrowing (the tenant set applies as-is).
	EnabledModules []string
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Role is the user's role within its tenant. Permissions per role come from the
// static grant table in internal/authz.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// Validate validates the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if !ValidRole(u.Role) {
		return errors.New("invalid role")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
