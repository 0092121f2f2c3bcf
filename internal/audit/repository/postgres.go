package repository

import (
	"context"
	"database/sql"

	"saas-erp/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const auditColumns = `id, tenant_id, user_id, action, resource, ip, metadata, created_at`

// CountsByTenant returns the number of audit entries per action for the tenant.
func (r *PostgresRepository) CountsByTenant(ctx context.Context, tenantID string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT action, COUNT(*) FROM audit_logs
		WHERE tenant_id = $1
		GROUP BY action`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var action string
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[action] = n
	}
	return out, rows.Err()
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, nullString(a.UserID), a.Action, a.Resource,
		nullString(a.IP), nullString(a.Metadata), a.CreatedAt,
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
