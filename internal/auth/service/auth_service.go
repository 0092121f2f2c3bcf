package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	authdomain "saas-erp/backend/internal/auth/domain"
	"saas-erp/backend/internal/audit"
	"saas-erp/backend/internal/events"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/server/middleware"
	sessiondomain "saas-erp/backend/internal/session/domain"
	sessionrepo "saas-erp/backend/internal/session/repository"
	"saas-erp/backend/internal/tenant"
	userdomain "saas-erp/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the HTTP boundary maps them to status
// codes. Token validation failures (security.ErrInvalidToken,
// security.ErrTokenExpired) pass through unchanged.
var (
	// ErrInvalidCredentials covers wrong email and wrong password alike, so
	// responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionRevoked     = errors.New("session revoked")
)

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
	Identity         authdomain.Identity
}

// LoginMeta carries transport-level request facts recorded on the session.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionRepo is the minimal session registry needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	CompareAndBump(ctx context.Context, id string, expectedVersion int64, newJti, newHash string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) error
}

// TenantModules resolves a tenant's enabled modules and active status.
// Satisfied by tenant.ModuleCache.
type TenantModules interface {
	Modules(ctx context.Context, tenantID string) (modules []string, active bool, err error)
}

// AuthService implements login, refresh-token rotation, and logout against the
// session registry. The registry is the only shared mutable state; everything
// else here is pure computation over it.
type AuthService struct {
	userRepo    UserRepo
	sessionRepo SessionRepo
	tenants     TenantModules
	hasher      *security.PasswordHasher
	tokens      *security.TokenProvider
	auditLog    audit.AuditLogger
	emitter     events.Emitter
}

// NewAuthService returns an AuthService with the given dependencies. auditLog
// and emitter may be nil.
func NewAuthService(
	userRepo UserRepo,
	sessionRepo SessionRepo,
	tenants TenantModules,
	hasher *security.PasswordHasher,
	tokens *security.TokenProvider,
	auditLog audit.AuditLogger,
	emitter events.Emitter,
) *AuthService {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tenants:     tenants,
		hasher:      hasher,
		tokens:      tokens,
		auditLog:    auditLog,
		emitter:     emitter,
	}
}

// Login authenticates with email/password, creates a fresh session (one per
// login, so concurrent device sessions coexist), and returns a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string, meta LoginMeta) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive || user.PasswordHash == "" {
		s.recordLoginFailure(ctx, email, meta)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.recordLoginFailure(ctx, email, meta)
		return nil, ErrInvalidCredentials
	}
	_, active, err := s.tenants.Modules(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			s.recordLoginFailure(ctx, email, meta)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !active {
		s.recordLoginFailure(ctx, email, meta)
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sessionID := uuid.New().String()
	refreshToken, jti, refreshExp, err := s.tokens.IssueRefresh(sessionID, user.ID, user.TenantID, 0)
	if err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, user.ID, user.Email, string(user.Role), user.TenantID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		TenantID:         user.TenantID,
		TokenVersion:     0,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		IPAddress:        meta.IP,
		UserAgent:        meta.UserAgent,
		ExpiresAt:        refreshExp,
		CreatedAt:        now,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.auditLog.LogEvent(ctx, user.TenantID, user.ID, "login", "session", meta.IP, "")
	events.EmitAsync(s.emitter, &events.SecurityEvent{
		Type:      events.TypeLoginSuccess,
		TenantID:  user.TenantID,
		UserID:    user.ID,
		SessionID: sessionID,
		IP:        meta.IP,
	})
	return &AuthResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
		Identity:         identityOf(user, sessionID),
	}, nil
}

// Refresh validates the refresh token and rotates it. Version match bumps the
// session atomically and issues a fresh pair; a stale version is a replay
// signal and revokes every session of the user, so the holder of the current
// token loses access too and must re-authenticate. Stale tokens are never
// quietly ignored.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, security.ErrInvalidToken
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionRepo.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if !sess.Valid(time.Now()) {
		return nil, ErrSessionRevoked
	}
	if claims.TokenVersion != sess.TokenVersion {
		return nil, s.revokeOnReplay(ctx, sess)
	}
	if sess.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		return nil, security.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		_ = s.sessionRepo.Revoke(ctx, sess.ID)
		return nil, ErrSessionRevoked
	}

	newRefresh, newJti, refreshExp, err := s.tokens.IssueRefresh(sess.ID, user.ID, user.TenantID, sess.TokenVersion+1)
	if err != nil {
		return nil, err
	}
	updated, err := s.sessionRepo.CompareAndBump(ctx, sess.ID, sess.TokenVersion, newJti, security.HashRefreshToken(newRefresh))
	if err != nil {
		if errors.Is(err, sessionrepo.ErrVersionConflict) {
			// Lost the race against a concurrent rotation on the same
			// version: same signal as a replayed token.
			return nil, s.revokeOnReplay(ctx, sess)
		}
		return nil, err
	}
	if updated == nil {
		return nil, ErrSessionNotFound
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sess.ID, user.ID, user.Email, string(user.Role), user.TenantID)
	if err != nil {
		return nil, err
	}

	s.auditLog.LogEvent(ctx, user.TenantID, user.ID, "refresh", "session", sess.IPAddress, "")
	events.EmitAsync(s.emitter, &events.SecurityEvent{
		Type:      events.TypeTokenRefreshed,
		TenantID:  user.TenantID,
		UserID:    user.ID,
		SessionID: sess.ID,
	})
	return &AuthResult{
		AccessToken:      accessToken,
		RefreshToken:     newRefresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
		Identity:         identityOf(user, sess.ID),
	}, nil
}

// Logout revokes the session identified by the refresh token, or by the access
// token's session in context when no refresh token is supplied. Idempotent:
// invalid or already-revoked tokens are a successful no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	sessionID := ""
	tenantID, userID := "", ""
	if refreshToken != "" {
		claims, err := s.tokens.ValidateRefresh(refreshToken)
		if err != nil {
			return nil
		}
		sessionID = claims.SessionID
		tenantID, userID = claims.TenantID, claims.Subject
	} else if id, ok := middleware.GetIdentity(ctx); ok {
		sessionID = id.SessionID
		tenantID, userID = id.TenantID, id.UserID
	}
	if sessionID == "" {
		return nil
	}
	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.auditLog.LogEvent(ctx, tenantID, userID, "logout", "session", "", "")
	events.EmitAsync(s.emitter, &events.SecurityEvent{
		Type:      events.TypeLogout,
		TenantID:  tenantID,
		UserID:    userID,
		SessionID: sessionID,
	})
	return nil
}

// LogoutAll revokes every session of the authenticated user (logout
// everywhere).
func (s *AuthService) LogoutAll(ctx context.Context) error {
	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		return nil
	}
	if err := s.sessionRepo.RevokeAllByUser(ctx, id.UserID); err != nil {
		return err
	}
	s.auditLog.LogEvent(ctx, id.TenantID, id.UserID, "logout_all", "session", "", "")
	events.EmitAsync(s.emitter, &events.SecurityEvent{
		Type:     events.TypeSessionRevoked,
		TenantID: id.TenantID,
		UserID:   id.UserID,
	})
	return nil
}

// Sessions returns the user's active sessions for the account-security view.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessionRepo.ListByUser(ctx, userID)
}

// revokeOnReplay applies the rotate-or-revoke rule: a consumed refresh token
// being presented again implies a leak, so the whole user loses every session,
// including the concurrently issued current token.
func (s *AuthService) revokeOnReplay(ctx context.Context, sess *sessiondomain.Session) error {
	if err := s.sessionRepo.RevokeAllByUser(ctx, sess.UserID); err != nil {
		return err
	}
	s.auditLog.LogEvent(ctx, sess.TenantID, sess.UserID, "token_replay", "session", sess.IPAddress, "all sessions revoked")
	events.EmitAsync(s.emitter, &events.SecurityEvent{
		Type:      events.TypeTokenReplay,
		TenantID:  sess.TenantID,
		UserID:    sess.UserID,
		SessionID: sess.ID,
	})
	return ErrSessionRevoked
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email string, meta LoginMeta) {
	s.auditLog.LogEvent(ctx, "", "", "login_failure", "session", meta.IP, email)
	events.EmitAsync(s.emitter, &events.SecurityEvent{
		Type:     events.TypeLoginFailure,
		IP:       meta.IP,
		Metadata: map[string]string{"email": email},
	})
}

func identityOf(u *userdomain.User, sessionID string) authdomain.Identity {
	return authdomain.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		TenantID:  u.TenantID,
		SessionID: sessionID,
	}
}
