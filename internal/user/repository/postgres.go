package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"saas-erp/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, tenant_id, email, name, role, password_hash, enabled_modules, status, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user for the (globally unique) email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Create persists the user. The user must have ID and TenantID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	modules, err := json.Marshal(u.EnabledModules)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.TenantID, u.Email, u.Name, string(u.Role), u.PasswordHash,
		modules, string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// UpdatePasswordHash replaces the stored password hash for the user.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC())
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	var role, status string
	var modules []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &role, &u.PasswordHash,
		&modules, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	if len(modules) > 0 {
		if err := json.Unmarshal(modules, &u.EnabledModules); err != nil {
			return nil, err
		}
	}
	return &u, nil
}
