package domain

import (
	"errors"
	"time"
)

// Tenant represents one customer organization: the isolation boundary for all
// data and configuration. EnabledModules gates which feature areas the tenant
// may use, independently of user roles.
type Tenant struct {
	ID             string
	Name           string
	Slug           string
	Domain         string // optional custom domain
	EnabledModules []string
	Status         TenantStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Validate validates the tenant for persistence. Returns an error describing
// the first validation failure.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Slug == "" {
		return errors.New("slug is required")
	}
	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	return nil
}
