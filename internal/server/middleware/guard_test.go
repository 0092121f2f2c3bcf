package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	authdomain "saas-erp/backend/internal/auth/domain"
	"saas-erp/backend/internal/authz"
	"saas-erp/backend/internal/tenant"
	userdomain "saas-erp/backend/internal/user/domain"
)

// memGuardTenants implements TenantModules for guard tests.
type memGuardTenants struct {
	mu        sync.Mutex
	modules   map[string][]string
	suspended map[string]bool
}

func (m *memGuardTenants) Modules(_ context.Context, tenantID string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mods, ok := m.modules[tenantID]
	if !ok {
		return nil, false, tenant.ErrTenantNotFound
	}
	return mods, !m.suspended[tenantID], nil
}

// memGuardUsers implements UserModules for guard tests.
type memGuardUsers struct {
	narrowing map[string][]string
}

func (m *memGuardUsers) EnabledModules(_ context.Context, userID string) ([]string, error) {
	return m.narrowing[userID], nil
}

func newGuard(t *testing.T, tenants TenantModules, users UserModules) *Guard {
	t.Helper()
	grants, err := authz.LoadDefaultGrants()
	if err != nil {
		t.Fatalf("LoadDefaultGrants: %v", err)
	}
	return NewGuard(authz.NewStaticEvaluator(grants), tenants, users, nil)
}

func serveGuarded(g *Guard, id authdomain.Identity, resource, action, tenantHeader string) *httptest.ResponseRecorder {
	h := g.RequirePermission(resource, action)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/accounting/stats", nil)
	if tenantHeader != "" {
		req.Header.Set("X-Tenant-Id", tenantHeader)
	}
	req = req.WithContext(WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequirePermission(t *testing.T) {
	tenants := &memGuardTenants{
		modules: map[string][]string{
			"tenant-a": {"accounting", "crm"},
			"tenant-b": {"hr"},
		},
		suspended: map[string]bool{},
	}
	admin := authdomain.Identity{UserID: "u1", Role: userdomain.RoleAdmin, TenantID: "tenant-a", SessionID: "s1"}
	staff := authdomain.Identity{UserID: "u2", Role: userdomain.RoleStaff, TenantID: "tenant-a", SessionID: "s2"}

	cases := []struct {
		name       string
		id         authdomain.Identity
		resource   string
		action     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"admin reads enabled module", admin, "invoices", "read", "", http.StatusOK, ""},
		{"matching tenant header", admin, "invoices", "read", "tenant-a", http.StatusOK, ""},
		{"foreign tenant header", admin, "invoices", "read", "tenant-b", http.StatusForbidden, "tenant mismatch"},
		{"disabled module", admin, "employees", "read", "", http.StatusForbidden, "module disabled"},
		{"role lacks grant", staff, "invoices", "delete", "", http.StatusForbidden, "permission denied"},
		{"staff allowed read", staff, "invoices", "read", "", http.StatusOK, ""},
		{"unknown resource", admin, "spaceships", "read", "", http.StatusForbidden, ""},
	}
	g := newGuard(t, tenants, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveGuarded(g, tc.id, tc.resource, tc.action, tc.header)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantBody != "" && !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Errorf("body = %s, want mention of %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestRequirePermission_TenantStates(t *testing.T) {
	tenants := &memGuardTenants{
		modules:   map[string][]string{"tenant-a": {"accounting"}},
		suspended: map[string]bool{"tenant-a": true},
	}
	g := newGuard(t, tenants, nil)
	admin := authdomain.Identity{UserID: "u1", Role: userdomain.RoleAdmin, TenantID: "tenant-a", SessionID: "s1"}

	if rec := serveGuarded(g, admin, "invoices", "read", ""); rec.Code != http.StatusForbidden {
		t.Errorf("suspended tenant status = %d, want 403", rec.Code)
	}

	ghost := authdomain.Identity{UserID: "u9", Role: userdomain.RoleAdmin, TenantID: "tenant-gone", SessionID: "s9"}
	if rec := serveGuarded(g, ghost, "invoices", "read", ""); rec.Code != http.StatusForbidden {
		t.Errorf("unknown tenant status = %d, want 403", rec.Code)
	}
}

func TestRequirePermission_UserNarrowing(t *testing.T) {
	tenants := &memGuardTenants{
		modules:   map[string][]string{"tenant-a": {"accounting", "crm"}},
		suspended: map[string]bool{},
	}
	users := &memGuardUsers{narrowing: map[string][]string{"u-narrow": {"crm"}}}
	g := newGuard(t, tenants, users)

	narrowed := authdomain.Identity{UserID: "u-narrow", Role: userdomain.RoleAdmin, TenantID: "tenant-a", SessionID: "s1"}
	if rec := serveGuarded(g, narrowed, "invoices", "read", ""); rec.Code != http.StatusForbidden {
		t.Errorf("narrowed-out module status = %d, want 403", rec.Code)
	}
	if rec := serveGuarded(g, narrowed, "customers", "read", ""); rec.Code != http.StatusOK {
		t.Errorf("narrowed-in module status = %d, want 200", rec.Code)
	}

	wide := authdomain.Identity{UserID: "u-wide", Role: userdomain.RoleAdmin, TenantID: "tenant-a", SessionID: "s2"}
	if rec := serveGuarded(g, wide, "invoices", "read", ""); rec.Code != http.StatusOK {
		t.Errorf("unnarrowed user status = %d, want 200", rec.Code)
	}
}

func TestRequirePermission_NoIdentity(t *testing.T) {
	g := newGuard(t, &memGuardTenants{modules: map[string][]string{}}, nil)
	h := g.RequirePermission("invoices", "read")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached without identity")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounting/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
