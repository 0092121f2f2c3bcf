package domain

import "time"

// Session anchors one refresh-token lineage. TokenVersion is the monotonic
// counter that invalidates every previously issued refresh token for the
// session once a rotation lands; at most one valid version is accepted at a
// time.
type Session struct {
	ID               string
	UserID           string
	TenantID         string
	TokenVersion     int64
	RefreshJti       string // jti of the currently valid refresh token
	RefreshTokenHash string // SHA-256 hash of the currently valid refresh token
	IPAddress        string
	UserAgent        string
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastSeenAt       *time.Time
	CreatedAt        time.Time
}

// Valid reports whether the session is neither revoked nor expired at now.
// Expired sessions behave as revoked on every read path.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
