// Package stats exposes per-module, tenant-scoped dashboard counters. Each
// business module registers a Provider; the server mounts one guarded route
// per registration, so the permission matrix and the tenant module gate apply
// to stats exactly as to the module's own endpoints.
package stats

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"saas-erp/backend/internal/server/httputil"
	"saas-erp/backend/internal/server/middleware"
)

// Result is a flat counter map, e.g. {"invoices_open": 12}.
type Result map[string]int64

// Provider computes stats for one module scoped to a single tenant.
type Provider interface {
	Stats(ctx context.Context, tenantID string) (Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, tenantID string) (Result, error)

func (f ProviderFunc) Stats(ctx context.Context, tenantID string) (Result, error) {
	return f(ctx, tenantID)
}

// Registration binds a module name to its provider and the resource whose
// read permission guards the route.
type Registration struct {
	Module   string
	Resource string
	Provider Provider
}

// Registry holds stats providers keyed by module.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds or replaces the provider for a module.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reg.Module] = reg
}

// Registrations returns all registrations sorted by module name.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out
}

// Handler serves one module's stats for the caller's tenant. The tenant comes
// from the token identity only; there is no tenant parameter to tamper with.
func Handler(reg Registration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetIdentity(r.Context())
		if !ok {
			httputil.WriteJSONError(w, http.StatusUnauthorized, "missing or invalid authorization")
			return
		}
		result, err := reg.Provider.Stats(r.Context(), id.TenantID)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"module": reg.Module,
			"stats":  result,
		})
	}
}
