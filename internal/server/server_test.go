package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"saas-erp/backend/internal/auth/service"
	"saas-erp/backend/internal/authz"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/server/middleware"
	sessionrepo "saas-erp/backend/internal/session/repository"
	"saas-erp/backend/internal/stats"
	"saas-erp/backend/internal/tenant"
	userdomain "saas-erp/backend/internal/user/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memUserRepo) EnabledModules(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.users[id]; u != nil {
		return u.EnabledModules, nil
	}
	return nil, nil
}

type memTenants struct {
	modules map[string][]string
}

func (m *memTenants) Modules(_ context.Context, tenantID string) ([]string, bool, error) {
	mods, ok := m.modules[tenantID]
	if !ok {
		return nil, false, tenant.ErrTenantNotFound
	}
	return mods, true, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("s3cret-pass"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	users := &memUserRepo{users: map[string]*userdomain.User{}}
	adminID := uuid.New().String()
	users.users[adminID] = &userdomain.User{
		ID:           adminID,
		TenantID:     "tenant-a",
		Email:        "amy@acme.test",
		Role:         userdomain.RoleAdmin,
		PasswordHash: hash,
		Status:       userdomain.UserStatusActive,
	}
	tenants := &memTenants{modules: map[string][]string{
		"tenant-a": {"accounting"},
		"tenant-b": {"hr"},
	}}
	sessions := sessionrepo.NewMemoryRepository()
	authSvc := service.NewAuthService(users, sessions, tenants, hasher, tokens, nil, nil)

	grants, err := authz.LoadDefaultGrants()
	if err != nil {
		t.Fatalf("LoadDefaultGrants: %v", err)
	}
	guard := middleware.NewGuard(authz.NewStaticEvaluator(grants), tenants, users, nil)

	registry := stats.NewRegistry()
	for _, reg := range []stats.Registration{
		{Module: "accounting", Resource: "invoices"},
		{Module: "hr", Resource: "employees"},
	} {
		reg.Provider = stats.ProviderFunc(func(context.Context, string) (stats.Result, error) {
			return stats.Result{"events": 1}, nil
		})
		registry.Register(reg)
	}

	srv := New(":0", Deps{
		Auth:     authSvc,
		Tokens:   tokens,
		Sessions: sessions,
		Guard:    guard,
		Stats:    registry,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func login(t *testing.T, ts *httptest.Server) (accessToken, refreshToken string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json",
		strings.NewReader(`{"email":"amy@acme.test","password":"s3cret-pass"}`))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	return body.AccessToken, body.RefreshToken
}

func get(t *testing.T, ts *httptest.Server, path, token, tenantHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if tenantHeader != "" {
		req.Header.Set("X-Tenant-Id", tenantHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_MeRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	if resp := get(t, ts, "/api/auth/me", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated /me status = %d, want 401", resp.StatusCode)
	}

	access, _ := login(t, ts)
	resp := get(t, ts, "/api/auth/me", access, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/me status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Email    string `json:"email"`
		TenantID string `json:"tenant_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /me body: %v", err)
	}
	if body.Email != "amy@acme.test" || body.TenantID != "tenant-a" {
		t.Errorf("/me body = %+v, want login identity", body)
	}
}

func TestServer_StatsGuard(t *testing.T) {
	ts := newTestServer(t)
	access, _ := login(t, ts)

	// Enabled module, granted role.
	if resp := get(t, ts, "/api/accounting/stats", access, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("accounting stats status = %d, want 200", resp.StatusCode)
	}
	// Module not enabled for the tenant.
	if resp := get(t, ts, "/api/hr/stats", access, ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("hr stats status = %d, want 403", resp.StatusCode)
	}
	// A header naming another tenant never reroutes the request.
	if resp := get(t, ts, "/api/accounting/stats", access, "tenant-b"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign tenant header status = %d, want 403", resp.StatusCode)
	}
	// No token at all.
	if resp := get(t, ts, "/api/accounting/stats", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous stats status = %d, want 401", resp.StatusCode)
	}
}

func TestServer_RevokedSessionLosesAccess(t *testing.T) {
	ts := newTestServer(t)
	access, refresh := login(t, ts)

	resp, err := http.Post(ts.URL+"/api/auth/logout", "application/json",
		strings.NewReader(`{"refresh_token":"`+refresh+`"}`))
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", resp.StatusCode)
	}

	// The access token is still signature-valid but its session is gone.
	if resp := get(t, ts, "/api/auth/me", access, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("/me after logout status = %d, want 401", resp.StatusCode)
	}
}
