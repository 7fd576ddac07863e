package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// RolePattern lists the regular expressions that select a header for a role.
// A header matching any Exclude expression is never taken by the role.
type RolePattern struct {
	Match   []string `json:"match"`
	Exclude []string `json:"exclude,omitempty"`
}

// GlobalRoleConfig represents the global role pattern configuration.
type GlobalRoleConfig struct {
	Priority []Role               `json:"priority"`
	Roles    map[Role]RolePattern `json:"roles"`
}

// TenantRoleOverride represents tenant-specific role overrides.
// Roles patterns are tried before the global ones; Pins map an exact header
// name to a role and win over every pattern.
type TenantRoleOverride struct {
	Roles map[Role]RolePattern `json:"roles,omitempty"`
	Pins  map[string]Role      `json:"pins,omitempty"`
}

type compiledPattern struct {
	match   []*regexp.Regexp
	exclude []*regexp.Regexp
}

func (p compiledPattern) matches(normalized string) bool {
	for _, ex := range p.exclude {
		if ex.MatchString(normalized) {
			return false
		}
	}
	for _, re := range p.match {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// ResolvedPatterns is the compiled, merged pattern set used for detection.
type ResolvedPatterns struct {
	priority []Role
	patterns map[Role]compiledPattern
	pins     map[string]Role // keyed by normalized header
}

// Priority returns the role claim order.
func (p *ResolvedPatterns) Priority() []Role {
	return append([]Role(nil), p.priority...)
}

// Resolver handles role pattern resolution.
type Resolver struct{}

// NewResolver creates a new role pattern resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve resolves role patterns using the resolver.
func (r *Resolver) Resolve(ctx context.Context, config json.RawMessage, tenantConfig json.RawMessage) (*ResolvedPatterns, error) {
	return Resolve(config, tenantConfig)
}

// Resolve merges global role patterns with tenant overrides. An empty global
// config means the built-in defaults.
func Resolve(globalConfig, tenantConfig json.RawMessage) (*ResolvedPatterns, error) {
	global := DefaultConfig()
	if len(globalConfig) > 0 && string(globalConfig) != "null" {
		global = GlobalRoleConfig{}
		if err := json.Unmarshal(globalConfig, &global); err != nil {
			return nil, fmt.Errorf("failed to parse global role config: %w", err)
		}
	}

	var tenant *TenantRoleOverride
	if len(tenantConfig) > 0 && string(tenantConfig) != "null" {
		tenant = &TenantRoleOverride{}
		if err := json.Unmarshal(tenantConfig, tenant); err != nil {
			return nil, fmt.Errorf("failed to parse tenant role override: %w", err)
		}
	}

	return resolveConfig(global, tenant)
}

func resolveConfig(global GlobalRoleConfig, tenant *TenantRoleOverride) (*ResolvedPatterns, error) {
	if len(global.Priority) == 0 {
		return nil, fmt.Errorf("global role config must specify a priority order")
	}
	if len(global.Roles) == 0 {
		return nil, fmt.Errorf("global role config must specify at least one role pattern")
	}

	resolved := &ResolvedPatterns{
		patterns: make(map[Role]compiledPattern, len(global.Roles)),
		pins:     make(map[string]Role),
	}

	seen := make(map[Role]bool, len(global.Priority))
	for _, role := range global.Priority {
		if !role.IsKnown() {
			return nil, fmt.Errorf("priority references unknown role: %s", role)
		}
		if seen[role] {
			return nil, fmt.Errorf("priority lists role twice: %s", role)
		}
		seen[role] = true
		resolved.priority = append(resolved.priority, role)
	}

	merged := make(map[Role]RolePattern, len(global.Roles))
	for role, p := range global.Roles {
		if !seen[role] {
			return nil, fmt.Errorf("role %s has patterns but no priority", role)
		}
		merged[role] = p
	}

	if tenant != nil {
		for role, p := range tenant.Roles {
			if !seen[role] {
				return nil, fmt.Errorf("cannot override patterns for unknown role: %s", role)
			}
			base := merged[role]
			merged[role] = RolePattern{
				Match:   append(append([]string(nil), p.Match...), base.Match...),
				Exclude: append(append([]string(nil), p.Exclude...), base.Exclude...),
			}
		}
		for header, role := range tenant.Pins {
			if !role.IsKnown() {
				return nil, fmt.Errorf("pin for header %q references unknown role: %s", header, role)
			}
			resolved.pins[NormalizeHeader(header)] = role
		}
	}

	for role, p := range merged {
		compiled, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
		resolved.patterns[role] = compiled
	}

	return resolved, nil
}

func compilePattern(p RolePattern) (compiledPattern, error) {
	var out compiledPattern
	for _, expr := range p.Match {
		re, err := regexp.Compile(expr)
		if err != nil {
			return out, fmt.Errorf("invalid match pattern %q: %w", expr, err)
		}
		out.match = append(out.match, re)
	}
	for _, expr := range p.Exclude {
		re, err := regexp.Compile(expr)
		if err != nil {
			return out, fmt.Errorf("invalid exclude pattern %q: %w", expr, err)
		}
		out.exclude = append(out.exclude, re)
	}
	return out, nil
}
