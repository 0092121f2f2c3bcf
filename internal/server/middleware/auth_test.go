package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authdomain "saas-erp/backend/internal/auth/domain"
	"saas-erp/backend/internal/security"
	sessiondomain "saas-erp/backend/internal/session/domain"
	sessionrepo "saas-erp/backend/internal/session/repository"
)

func newAuthFixture(t *testing.T) (*security.TokenProvider, *sessionrepo.MemoryRepository) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	return tokens, sessionrepo.NewMemoryRepository()
}

func issueAccess(t *testing.T, tokens *security.TokenProvider, sessionID, userID string) string {
	t.Helper()
	token, _, _, err := tokens.IssueAccess(sessionID, userID, "amy@acme.test", "admin", "tenant-a")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token
}

func identityEcho(t *testing.T, got *authdomain.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			t.Error("no identity in context inside protected handler")
		}
		*got = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	tokens, sessions := newAuthFixture(t)
	h := RequireAuth(tokens, sessions)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached without credentials")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	tokens, sessions := newAuthFixture(t)
	h := RequireAuth(tokens, sessions)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached with a garbage token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	tokens, sessions := newAuthFixture(t)
	sessionID, userID := uuid.New().String(), uuid.New().String()
	if err := sessions.Create(context.Background(), &sessiondomain.Session{
		ID:        sessionID,
		UserID:    userID,
		TenantID:  "tenant-a",
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	refresh, _, _, err := tokens.IssueRefresh(sessionID, userID, "tenant-a", 0)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	h := RequireAuth(tokens, sessions)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached with a refresh token as bearer credential")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_LiveSession(t *testing.T) {
	tokens, sessions := newAuthFixture(t)
	sessionID, userID := uuid.New().String(), uuid.New().String()
	if err := sessions.Create(context.Background(), &sessiondomain.Session{
		ID:        sessionID,
		UserID:    userID,
		TenantID:  "tenant-a",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var got authdomain.Identity
	h := RequireAuth(tokens, sessions)(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, tokens, sessionID, userID))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.UserID != userID || got.TenantID != "tenant-a" || got.SessionID != sessionID {
		t.Errorf("identity = %+v, want claims from the token", got)
	}
}

func TestRequireAuth_RevokedSession(t *testing.T) {
	tokens, sessions := newAuthFixture(t)
	sessionID, userID := uuid.New().String(), uuid.New().String()
	if err := sessions.Create(context.Background(), &sessiondomain.Session{
		ID:        sessionID,
		UserID:    userID,
		TenantID:  "tenant-a",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := sessions.Revoke(context.Background(), sessionID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	h := RequireAuth(tokens, sessions)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached with a revoked session")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, tokens, sessionID, userID))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for revoked session", rec.Code)
	}
}

func TestRequireAuth_UnknownSession(t *testing.T) {
	tokens, sessions := newAuthFixture(t)
	h := RequireAuth(tokens, sessions)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached with an unknown session")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, tokens, uuid.New().String(), uuid.New().String()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for unknown session", rec.Code)
	}
}

func TestRequireAuth_StatelessWhenNoRegistry(t *testing.T) {
	tokens, _ := newAuthFixture(t)
	var got authdomain.Identity
	h := RequireAuth(tokens, nil)(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, tokens, uuid.New().String(), uuid.New().String()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 without a session registry", rec.Code)
	}
}
