package repository

import (
	"context"

	"saas-erp/backend/internal/user/domain"
)

// Repository is the user store consumed by the auth service and seed tooling.
// Implementations return (nil, nil) for missing rows; errors are store failures
// only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
