package repository

import (
	"context"
	"errors"
	"time"

	"saas-erp/backend/internal/session/domain"
)

// ErrVersionConflict is returned by CompareAndBump when the session's stored
// token version no longer matches the expected version, meaning a concurrent
// rotation won or the presented token is stale.
var ErrVersionConflict = errors.New("session token version conflict")

// Repository is the session registry: the durable record of outstanding refresh
// sessions and the source of truth for revocation. All mutating operations on a
// given session id are linearizable; CompareAndBump is a single conditional
// update so two rotations racing on the same version observe exactly one winner.
type Repository interface {
	// Create persists the session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found. It returns an
	// error only for store failures, not for missing rows.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListByUser returns the user's non-revoked, non-expired sessions.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// CompareAndBump atomically increments the session's token version and
	// installs the next refresh token's jti and hash, provided the stored
	// version equals expectedVersion and the session is still valid. Returns
	// the updated session, ErrVersionConflict on version mismatch or
	// revoked/expired session, or nil, nil when the session does not exist.
	CompareAndBump(ctx context.Context, id string, expectedVersion int64, newJti, newHash string) (*domain.Session, error)
	// Revoke marks the session revoked. Idempotent: revoking an already revoked
	// or missing session is not an error.
	Revoke(ctx context.Context, id string) error
	// RevokeAllByUser revokes every session belonging to the user. Used by
	// logout-everywhere and by the replay-detection path.
	RevokeAllByUser(ctx context.Context, userID string) error
	// UpdateLastSeen sets the session's last-seen timestamp.
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes sessions whose expiry is older than cutoff and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
