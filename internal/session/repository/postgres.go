package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"saas-erp/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, tenant_id, token_version, refresh_jti, refresh_token_hash,
	ip_address, user_agent, expires_at, revoked_at, last_seen_at, created_at`

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.UserID, s.TenantID, s.TokenVersion,
		nullString(s.RefreshJti), nullString(s.RefreshTokenHash),
		nullString(s.IPAddress), nullString(s.UserAgent),
		s.ExpiresAt, nullTime(s.RevokedAt), nullTime(s.LastSeenAt), s.CreatedAt,
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns the user's non-revoked, non-expired sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CompareAndBump performs the rotation critical section as one conditional
// UPDATE, so concurrent rotations on the same version cannot both succeed.
func (r *PostgresRepository) CompareAndBump(ctx context.Context, id string, expectedVersion int64, newJti, newHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET token_version = token_version + 1,
		    refresh_jti = $3,
		    refresh_token_hash = $4,
		    last_seen_at = now()
		WHERE id = $1 AND token_version = $2 AND revoked_at IS NULL AND expires_at > now()
		RETURNING `+sessionColumns,
		id, expectedVersion, nullString(newJti), nullString(newHash))
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Disambiguate: missing session vs. lost race / stale version.
			existing, gerr := r.GetByID(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			if existing == nil {
				return nil, nil
			}
			return nil, ErrVersionConflict
		}
		return nil, err
	}
	return s, nil
}

// Revoke marks the session with the given id as revoked. Idempotent.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeAllByUser revokes all of the user's sessions.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}

// UpdateLastSeen sets the session's last-seen timestamp for the given id.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// DeleteExpired removes sessions that expired before cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var jti, hash, ip, ua sql.NullString
	var revokedAt, lastSeenAt sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.TenantID, &s.TokenVersion, &jti, &hash,
		&ip, &ua, &s.ExpiresAt, &revokedAt, &lastSeenAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.RefreshJti = jti.String
	s.RefreshTokenHash = hash.String
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.LastSeenAt = nullTimeToPtr(lastSeenAt)
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
