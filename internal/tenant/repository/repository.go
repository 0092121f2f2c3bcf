package repository

import (
	"context"

	"saas-erp/backend/internal/tenant/domain"
)

// Repository is the tenant store. Implementations return (nil, nil) for missing
// rows.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
	UpdateEnabledModules(ctx context.Context, id string, modules []string) error
}
