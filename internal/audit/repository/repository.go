package repository

import (
	"context"

	"saas-erp/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	// CountsByTenant returns the number of audit entries per action for the
	// tenant, for activity dashboards.
	CountsByTenant(ctx context.Context, tenantID string) (map[string]int64, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
