// Package authz decides allow/deny for (identity, resource, action) requests
// using a static role grant matrix plus tenant module enablement. Both gates
// must pass independently. Checks are pure set lookups, cheap enough to run on
// every request.
package authz

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed grants.yaml
var defaultGrantsYAML []byte

// Wildcard matches any resource or action in a grant entry.
const Wildcard = "*"

// Action names used in the grant matrix.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionPost   = "post"
)

type grantsFile struct {
	Modules map[string]struct {
		Resources []string `yaml:"resources"`
	} `yaml:"modules"`
	Roles map[string]struct {
		Grants []struct {
			Resource string   `yaml:"resource"`
			Actions  []string `yaml:"actions"`
		} `yaml:"grants"`
	} `yaml:"roles"`
}

// Grants is the parsed grant matrix: role -> resource -> action set, plus the
// resource -> owning module mapping. Immutable after load; safe for concurrent
// readers.
type Grants struct {
	roles            map[string]map[string]map[string]bool
	moduleByResource map[string]string
}

// LoadDefaultGrants parses the embedded grant matrix. Called once at startup.
func LoadDefaultGrants() (*Grants, error) {
	return ParseGrants(defaultGrantsYAML)
}

// ParseGrants parses a YAML grant matrix. Grant entries may use "*" for
// resource or actions. Every concrete resource must belong to exactly one
// module.
func ParseGrants(raw []byte) (*Grants, error) {
	var f grantsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("authz: parse grants: %w", err)
	}
	g := &Grants{
		roles:            make(map[string]map[string]map[string]bool),
		moduleByResource: make(map[string]string),
	}
	for module, m := range f.Modules {
		for _, res := range m.Resources {
			if prev, ok := g.moduleByResource[res]; ok {
				return nil, fmt.Errorf("authz: resource %q owned by both %q and %q", res, prev, module)
			}
			g.moduleByResource[res] = module
		}
	}
	for role, r := range f.Roles {
		byResource := make(map[string]map[string]bool)
		for _, gr := range r.Grants {
			if gr.Resource != Wildcard {
				if _, ok := g.moduleByResource[gr.Resource]; !ok {
					return nil, fmt.Errorf("authz: role %q grants unknown resource %q", role, gr.Resource)
				}
			}
			actions := byResource[gr.Resource]
			if actions == nil {
				actions = make(map[string]bool)
				byResource[gr.Resource] = actions
			}
			for _, a := range gr.Actions {
				actions[a] = true
			}
		}
		g.roles[role] = byResource
	}
	return g, nil
}

// ModuleFor returns the module owning the resource, or "" if the resource is
// unknown.
func (g *Grants) ModuleFor(resource string) string {
	return g.moduleByResource[resource]
}

// Allows reports whether the role's grant set contains the (resource, action)
// pair, honoring wildcards.
func (g *Grants) Allows(role, resource, action string) bool {
	byResource, ok := g.roles[role]
	if !ok {
		return false
	}
	for _, res := range []string{resource, Wildcard} {
		actions, ok := byResource[res]
		if !ok {
			continue
		}
		if actions[action] || actions[Wildcard] {
			return true
		}
	}
	return false
}

// GrantPair is one grant entry for a role; Resource and Actions may contain
// the wildcard.
type GrantPair struct {
	Resource string
	Actions  []string
}

// GrantsForRole returns the role's grant entries, wildcards included. Returns
// nil for unknown roles.
func (g *Grants) GrantsForRole(role string) []GrantPair {
	byResource, ok := g.roles[role]
	if !ok {
		return nil
	}
	out := make([]GrantPair, 0, len(byResource))
	for res, actions := range byResource {
		p := GrantPair{Resource: res, Actions: make([]string, 0, len(actions))}
		for a := range actions {
			p.Actions = append(p.Actions, a)
		}
		out = append(out, p)
	}
	return out
}

// Roles returns the configured role names.
func (g *Grants) Roles() []string {
	out := make([]string, 0, len(g.roles))
	for r := range g.roles {
		out = append(out, r)
	}
	return out
}

// Resources returns every concrete resource in the matrix.
func (g *Grants) Resources() []string {
	out := make([]string, 0, len(g.moduleByResource))
	for r := range g.moduleByResource {
		out = append(out, r)
	}
	return out
}

// Modules returns module -> sorted resource list.
func (g *Grants) Modules() map[string][]string {
	out := make(map[string][]string)
	for res, mod := range g.moduleByResource {
		out[mod] = append(out[mod], res)
	}
	for _, resources := range out {
		sort.Strings(resources)
	}
	return out
}
