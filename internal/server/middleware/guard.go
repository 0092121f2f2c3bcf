package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"saas-erp/backend/internal/authz"
	"saas-erp/backend/internal/events"
	"saas-erp/backend/internal/server/httputil"
	"saas-erp/backend/internal/tenant"
)

// TenantModules resolves a tenant's enabled modules and active status.
// Satisfied by tenant.ModuleCache.
type TenantModules interface {
	Modules(ctx context.Context, tenantID string) (modules []string, active bool, err error)
}

// UserModules returns the user-level module narrowing set, or nil when the
// user sees every tenant module.
type UserModules interface {
	EnabledModules(ctx context.Context, userID string) ([]string, error)
}

// Guard enforces permissions on protected routes. It must run after
// RequireAuth so an identity is present in context.
type Guard struct {
	evaluator authz.Evaluator
	tenants   TenantModules
	users     UserModules
	emitter   events.Emitter
}

// NewGuard returns a Guard. users and emitter may be nil.
func NewGuard(evaluator authz.Evaluator, tenants TenantModules, users UserModules, emitter events.Emitter) *Guard {
	return &Guard{evaluator: evaluator, tenants: tenants, users: users, emitter: emitter}
}

// RequirePermission allows the request through only when the caller's role
// grants (resource, action) and the owning module is enabled for the caller.
// The X-Tenant-ID header, when sent, is advisory only: a value disagreeing
// with the token's tenant is rejected rather than honored.
func (g *Guard) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				httputil.WriteJSONError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			if h := strings.TrimSpace(r.Header.Get("X-Tenant-Id")); h != "" && h != id.TenantID {
				g.deny(r, id.TenantID, id.UserID, resource, action, "tenant_mismatch")
				httputil.WriteJSONError(w, http.StatusForbidden, authz.ErrTenantMismatch.Error())
				return
			}
			modules, active, err := g.tenants.Modules(r.Context(), id.TenantID)
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					httputil.WriteJSONError(w, http.StatusForbidden, authz.ErrTenantMismatch.Error())
					return
				}
				log.Printf("middleware: tenant modules: %v", err)
				httputil.WriteJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !active {
				g.deny(r, id.TenantID, id.UserID, resource, action, "tenant_suspended")
				httputil.WriteJSONError(w, http.StatusForbidden, "tenant suspended")
				return
			}
			if g.users != nil {
				userMods, err := g.users.EnabledModules(r.Context(), id.UserID)
				if err != nil {
					log.Printf("middleware: user modules: %v", err)
					httputil.WriteJSONError(w, http.StatusInternalServerError, "internal error")
					return
				}
				modules = authz.EffectiveModules(modules, userMods)
			}
			decision := g.evaluator.Check(r.Context(), id, modules, resource, action)
			if !decision.Allowed {
				g.deny(r, id.TenantID, id.UserID, resource, action, string(decision.Reason))
				httputil.WriteJSONError(w, http.StatusForbidden, authz.DecisionError(decision).Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) deny(r *http.Request, tenantID, userID, resource, action, reason string) {
	events.EmitAsync(g.emitter, &events.SecurityEvent{
		Type:     events.TypeAccessDenied,
		TenantID: tenantID,
		UserID:   userID,
		IP:       httputil.ClientIP(r),
		Metadata: map[string]string{
			"resource": resource,
			"action":   action,
			"reason":   reason,
		},
	})
}
