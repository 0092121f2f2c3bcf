package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"saas-erp/backend/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, name, slug, domain, enabled_modules, status, created_at, updated_at`

// GetByID returns the tenant for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetBySlug returns the tenant for slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
}

// Create persists the tenant. The tenant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	modules, err := json.Marshal(t.EnabledModules)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.Slug, nullString(t.Domain), modules,
		string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// UpdateEnabledModules replaces the tenant's enabled-module set.
func (r *PostgresRepository) UpdateEnabledModules(ctx context.Context, id string, modules []string) error {
	b, err := json.Marshal(modules)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE tenants SET enabled_modules = $2, updated_at = $3 WHERE id = $1`,
		id, b, time.Now().UTC())
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Tenant, error) {
	var t domain.Tenant
	var dom sql.NullString
	var status string
	var modules []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.Name, &t.Slug, &dom, &modules, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Domain = dom.String
	t.Status = domain.TenantStatus(status)
	if len(modules) > 0 {
		if err := json.Unmarshal(modules, &t.EnabledModules); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
