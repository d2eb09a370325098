// Package authroles maps external role representations onto the console's
// role-assignment model. The management API already speaks that model, so
// its mapper is a passthrough; OIDC issuers embed roles in id_token claims
// and need a configurable projection.
package authroles

import (
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/opentrusty/console/internal/domain/auth"
)

// PassthroughMapper accepts role assignments already shaped by the
// management API's session endpoint.
type PassthroughMapper struct{}

func (PassthroughMapper) Map(assignments []auth.RoleAssignment) []auth.RoleAssignment {
	out := make([]auth.RoleAssignment, 0, len(assignments))
	for _, ra := range assignments {
		if ra.RoleName == "" {
			continue
		}
		out = append(out, ra)
	}
	return out
}

// ClaimsMapper projects OIDC id_token claims onto role assignments with a
// JMESPath expression. The expression must yield either a list of role-name
// strings or a list of objects with role_name/scope/scope_context_id keys.
type ClaimsMapper struct {
	expr string
}

// NewClaimsMapper validates the expression up front so a bad projection
// fails at startup, not on the first login.
func NewClaimsMapper(expr string) (*ClaimsMapper, error) {
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile role claims expression: %w", err)
	}
	return &ClaimsMapper{expr: expr}, nil
}

// Map evaluates the projection over raw claims. Unknown shapes in the result
// are skipped rather than failing the whole login.
func (m *ClaimsMapper) Map(claims map[string]any) ([]auth.RoleAssignment, error) {
	result, err := jmespath.Search(m.expr, claims)
	if err != nil {
		return nil, fmt.Errorf("evaluate role claims expression: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	items, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("role claims expression must yield a list, got %T", result)
	}

	var out []auth.RoleAssignment
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if ra, ok := assignmentFromName(v); ok {
				out = append(out, ra)
			}
		case map[string]any:
			if ra, ok := assignmentFromObject(v); ok {
				out = append(out, ra)
			}
		}
	}
	return out, nil
}

// assignmentFromName maps a bare role name to an assignment with the scope
// the role implies.
func assignmentFromName(name string) (auth.RoleAssignment, bool) {
	switch name {
	case auth.RolePlatformAdmin:
		return auth.RoleAssignment{RoleName: name, Scope: auth.ScopePlatform}, true
	case auth.RoleTenantAdmin, auth.RoleTenantOwner:
		return auth.RoleAssignment{RoleName: name, Scope: auth.ScopeTenant}, true
	default:
		return auth.RoleAssignment{}, false
	}
}

func assignmentFromObject(obj map[string]any) (auth.RoleAssignment, bool) {
	name, _ := obj["role_name"].(string)
	if name == "" {
		return auth.RoleAssignment{}, false
	}
	scope, _ := obj["scope"].(string)
	contextID, _ := obj["scope_context_id"].(string)

	ra := auth.RoleAssignment{
		RoleName:       name,
		Scope:          auth.RoleScope(scope),
		ScopeContextID: contextID,
	}
	if ra.Scope != auth.ScopePlatform && ra.Scope != auth.ScopeTenant {
		inferred, ok := assignmentFromName(name)
		if !ok {
			return auth.RoleAssignment{}, false
		}
		ra.Scope = inferred.Scope
	}
	return ra, true
}
