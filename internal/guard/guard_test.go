package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opentrusty/console/internal/domain/auth"
	"github.com/opentrusty/console/internal/session"
)

func authenticatedSnap(assignments ...auth.RoleAssignment) session.Snapshot {
	return session.Snapshot{
		Authenticated:   true,
		User:            &auth.User{ID: "u1", Email: "user@acme.io"},
		RoleAssignments: assignments,
	}
}

func platformAdmin() auth.RoleAssignment {
	return auth.RoleAssignment{RoleID: "r1", RoleName: auth.RolePlatformAdmin, Scope: auth.ScopePlatform}
}

func tenantOwner(tenantID string) auth.RoleAssignment {
	return auth.RoleAssignment{RoleID: "r2", RoleName: auth.RoleTenantOwner, Scope: auth.ScopeTenant, ScopeContextID: tenantID}
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want Kind
	}{
		{"loading session defers", session.Snapshot{Loading: true}, Loading},
		{"loading wins over authenticated", session.Snapshot{Loading: true, Authenticated: true}, Loading},
		{"unauthenticated redirects", session.Snapshot{}, RedirectLogin},
		{"authenticated allowed", authenticatedSnap(), Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RequireAuth(tt.snap, "/tenant/clients")
			assert.Equal(t, tt.want, d.Kind)
			if tt.want == RedirectLogin {
				assert.Equal(t, "/tenant/clients", d.From)
			}
		})
	}
}

func TestRequirePlatformAdmin(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want Kind
	}{
		{"loading defers", session.Snapshot{Loading: true}, Loading},
		{"unauthenticated redirects", session.Snapshot{}, RedirectLogin},
		{"tenant owner denied", authenticatedSnap(tenantOwner("t1")), AccessDenied},
		{"no roles denied", authenticatedSnap(), AccessDenied},
		{"platform admin allowed", authenticatedSnap(platformAdmin()), Allow},
		{
			"platform role name at tenant scope denied",
			authenticatedSnap(auth.RoleAssignment{RoleName: auth.RolePlatformAdmin, Scope: auth.ScopeTenant}),
			AccessDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RequirePlatformAdmin(tt.snap, "/platform/tenants")
			assert.Equal(t, tt.want, d.Kind)
		})
	}
}

func TestRequireTenantAdmin(t *testing.T) {
	withTenant := authenticatedSnap(tenantOwner("t1"))
	withTenant.TenantID = "t1"
	withTenant.TenantName = "Acme"

	tests := []struct {
		name string
		snap session.Snapshot
		want Kind
	}{
		{"loading defers", session.Snapshot{Loading: true}, Loading},
		{"unauthenticated redirects", session.Snapshot{}, RedirectLogin},
		{"platform admin denied in tenant region", authenticatedSnap(platformAdmin()), AccessDenied},
		{"tenant owner with tenant allowed", withTenant, Allow},
		{"tenant admin without tenant context is a config fault", authenticatedSnap(tenantOwner("t1")), ConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RequireTenantAdmin(tt.snap, "/tenant/users")
			assert.Equal(t, tt.want, d.Kind)
		})
	}
}

func TestDecisionReasons(t *testing.T) {
	denied := RequirePlatformAdmin(authenticatedSnap(), "/platform")
	assert.NotEmpty(t, denied.Reason)

	fault := RequireTenantAdmin(authenticatedSnap(tenantOwner("t1")), "/tenant")
	assert.NotEmpty(t, fault.Reason)
	assert.NotEqual(t, denied.Reason, fault.Reason)
}
