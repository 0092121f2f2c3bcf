package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	authdomain "saas-erp/backend/internal/auth/domain"
	"saas-erp/backend/internal/server/middleware"
	userdomain "saas-erp/backend/internal/user/domain"
)

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.Register(Registration{Module: "crm", Resource: "customers", Provider: ProviderFunc(nil)})
	r.Register(Registration{Module: "accounting", Resource: "invoices", Provider: ProviderFunc(nil)})
	r.Register(Registration{Module: "crm", Resource: "leads", Provider: ProviderFunc(nil)})

	regs := r.Registrations()
	if len(regs) != 2 {
		t.Fatalf("len(Registrations) = %d, want 2", len(regs))
	}
	if regs[0].Module != "accounting" || regs[1].Module != "crm" {
		t.Errorf("modules = [%s %s], want sorted [accounting crm]", regs[0].Module, regs[1].Module)
	}
	if regs[1].Resource != "leads" {
		t.Errorf("re-registration did not replace entry: resource = %s", regs[1].Resource)
	}
}

func TestHandler_ScopesToTokenTenant(t *testing.T) {
	var askedTenant string
	reg := Registration{
		Module:   "accounting",
		Resource: "invoices",
		Provider: ProviderFunc(func(_ context.Context, tenantID string) (Result, error) {
			askedTenant = tenantID
			return Result{"invoices_open": 3}, nil
		}),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/accounting/stats", nil)
	id := authdomain.Identity{UserID: "u1", Role: userdomain.RoleAdmin, TenantID: "tenant-a", SessionID: "s1"}
	req = req.WithContext(middleware.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if askedTenant != "tenant-a" {
		t.Errorf("provider asked for tenant %q, want the token's tenant", askedTenant)
	}
	var body struct {
		Module string           `json:"module"`
		Stats  map[string]int64 `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Module != "accounting" || body.Stats["invoices_open"] != 3 {
		t.Errorf("body = %+v, want accounting module stats", body)
	}
}

func TestHandler_NoIdentity(t *testing.T) {
	reg := Registration{Module: "crm", Resource: "customers", Provider: ProviderFunc(func(context.Context, string) (Result, error) {
		t.Error("provider called without identity")
		return nil, nil
	})}
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/crm/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandler_ProviderError(t *testing.T) {
	reg := Registration{Module: "crm", Resource: "customers", Provider: ProviderFunc(func(context.Context, string) (Result, error) {
		return nil, errors.New("store offline")
	})}
	req := httptest.NewRequest(http.MethodGet, "/api/crm/stats", nil)
	id := authdomain.Identity{UserID: "u1", Role: userdomain.RoleAdmin, TenantID: "tenant-a"}
	req = req.WithContext(middleware.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
