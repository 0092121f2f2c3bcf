package authz

import (
	"context"

	authdomain "saas-erp/backend/internal/auth/domain"
)

// DenyReason classifies why a check was denied. The boundary translator maps
// DenyModuleDisabled to its own error so clients can distinguish a feature
// that is off from a role that lacks permission.
type DenyReason string

const (
	DenyNone           DenyReason = ""
	DenyPermission     DenyReason = "permission"
	DenyModuleDisabled DenyReason = "module_disabled"
)

// Decision is the outcome of a permission check. Resource and Action are
// echoed for audit logging; the full grant matrix is never exposed.
type Decision struct {
	Allowed  bool
	Reason   DenyReason
	Resource string
	Action   string
	Module   string
}

// Evaluator decides allow/deny for an authenticated identity against a
// resource/action pair, given the tenant's effective enabled-module set.
// Implementations must be safe for concurrent use and must not block on I/O.
type Evaluator interface {
	Check(ctx context.Context, id authdomain.Identity, enabledModules []string, resource, action string) Decision
}

// StaticEvaluator evaluates the embedded grant matrix. Role permission and
// module enablement are independent gates; both must pass.
type StaticEvaluator struct {
	grants *Grants
}

// NewStaticEvaluator returns an evaluator over the given grant matrix.
func NewStaticEvaluator(grants *Grants) *StaticEvaluator {
	return &StaticEvaluator{grants: grants}
}

// Check implements Evaluator.
func (e *StaticEvaluator) Check(_ context.Context, id authdomain.Identity, enabledModules []string, resource, action string) Decision {
	d := Decision{Resource: resource, Action: action}
	d.Module = e.grants.ModuleFor(resource)
	if d.Module == "" {
		d.Reason = DenyPermission
		return d
	}
	if !e.grants.Allows(string(id.Role), resource, action) {
		d.Reason = DenyPermission
		return d
	}
	if !moduleEnabled(enabledModules, d.Module) {
		d.Reason = DenyModuleDisabled
		return d
	}
	d.Allowed = true
	return d
}

func moduleEnabled(modules []string, module string) bool {
	for _, m := range modules {
		if m == module {
			return true
		}
	}
	return false
}

// EffectiveModules intersects the tenant's enabled modules with the user-level
// narrowing set. Tenant-level enablement is authoritative; a non-empty user set
// can only narrow it, never widen it.
func EffectiveModules(tenantModules, userModules []string) []string {
	if len(userModules) == 0 {
		return tenantModules
	}
	allowed := make(map[string]bool, len(userModules))
	for _, m := range userModules {
		allowed[m] = true
	}
	var out []string
	for _, m := range tenantModules {
		if allowed[m] {
			out = append(out, m)
		}
	}
	return out
}
