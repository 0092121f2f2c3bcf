package authz

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	authdomain "saas-erp/backend/internal/auth/domain"
)

const defaultPolicyPackage = "erp.authz"

// Default Rego policy matching the StaticEvaluator semantics: role permission
// and module enablement are independent gates and both must pass. Tenants with
// custom policies replace this module; the input contract stays the same.
const defaultRegoPolicy = `package erp.authz

default allow = false
default permission_granted = false
default module_enabled = false

permission_granted if {
	some g in input.grants
	g.resource == input.resource
	g.actions[_] == input.action
}

permission_granted if {
	some g in input.grants
	g.resource == input.resource
	g.actions[_] == "*"
}

permission_granted if {
	some g in input.grants
	g.resource == "*"
	g.actions[_] == input.action
}

permission_granted if {
	some g in input.grants
	g.resource == "*"
	g.actions[_] == "*"
}

module_enabled if {
	input.enabled_modules[_] == input.module
}

allow if {
	permission_granted
	module_enabled
}
`

// OPAEvaluator evaluates authorization decisions with OPA Rego. The default
// policy reproduces the static matrix combination rule; deployments that need
// tenant-specific constraints (time windows, approval flags) swap the policy
// text via config. Evaluation failures deny: authorization fails closed.
type OPAEvaluator struct {
	grants   *Grants
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the policy once and returns the evaluator.
// policySource may be empty; then the built-in default policy is used.
func NewOPAEvaluator(grants *Grants, policySource string) (*OPAEvaluator, error) {
	if policySource == "" {
		policySource = defaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policySource})
	if err != nil {
		return nil, fmt.Errorf("authz: compile policy: %w", err)
	}
	return &OPAEvaluator{grants: grants, compiler: compiler}, nil
}

// HealthCheck verifies the in-process Rego engine can evaluate the compiled
// policy. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	input := e.buildInput("staff", nil, "invoices", "read")
	_, err := e.eval(ctx, input)
	return err
}

// Check implements Evaluator.
func (e *OPAEvaluator) Check(ctx context.Context, id authdomain.Identity, enabledModules []string, resource, action string) Decision {
	d := Decision{Resource: resource, Action: action}
	d.Module = e.grants.ModuleFor(resource)
	if d.Module == "" {
		d.Reason = DenyPermission
		return d
	}
	input := e.buildInput(string(id.Role), enabledModules, resource, action)
	result, err := e.eval(ctx, input)
	if err != nil {
		log.Printf("authz: policy evaluation failed, denying: %v", err)
		d.Reason = DenyPermission
		return d
	}
	if result.allow {
		d.Allowed = true
		return d
	}
	if result.permissionGranted && !result.moduleEnabled {
		d.Reason = DenyModuleDisabled
	} else {
		d.Reason = DenyPermission
	}
	return d
}

type opaResult struct {
	allow             bool
	permissionGranted bool
	moduleEnabled     bool
}

func (e *OPAEvaluator) buildInput(role string, enabledModules []string, resource, action string) map[string]interface{} {
	grants := make([]interface{}, 0)
	for _, g := range e.grants.GrantsForRole(role) {
		actions := make([]interface{}, 0, len(g.Actions))
		for _, a := range g.Actions {
			actions = append(actions, a)
		}
		grants = append(grants, map[string]interface{}{
			"resource": g.Resource,
			"actions":  actions,
		})
	}
	modules := make([]interface{}, 0, len(enabledModules))
	for _, m := range enabledModules {
		modules = append(modules, m)
	}
	return map[string]interface{}{
		"role":            role,
		"resource":        resource,
		"action":          action,
		"module":          e.grants.ModuleFor(resource),
		"grants":          grants,
		"enabled_modules": modules,
	}
}

func (e *OPAEvaluator) eval(ctx context.Context, input map[string]interface{}) (opaResult, error) {
	q := rego.New(
		rego.Query("data."+defaultPolicyPackage),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return opaResult{}, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return opaResult{}, fmt.Errorf("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return opaResult{}, fmt.Errorf("policy document has unexpected shape")
	}
	return opaResult{
		allow:             boolField(doc, "allow"),
		permissionGranted: boolField(doc, "permission_granted"),
		moduleEnabled:     boolField(doc, "module_enabled"),
	}, nil
}

func boolField(doc map[string]interface{}, key string) bool {
	v, ok := doc[key].(bool)
	return ok && v
}
