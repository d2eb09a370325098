package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/opentrusty/console/internal/errors"
)

func TestIsPlatformAdmin(t *testing.T) {
	tests := []struct {
		name        string
		assignments []RoleAssignment
		want        bool
	}{
		{
			name: "platform admin at platform scope",
			assignments: []RoleAssignment{
				{RoleID: "r1", RoleName: RolePlatformAdmin, Scope: ScopePlatform},
			},
			want: true,
		},
		{
			name: "platform_admin name at tenant scope does not count",
			assignments: []RoleAssignment{
				{RoleID: "r1", RoleName: RolePlatformAdmin, Scope: ScopeTenant, ScopeContextID: "t1"},
			},
			want: false,
		},
		{
			name: "tenant owner only",
			assignments: []RoleAssignment{
				{RoleID: "r2", RoleName: RoleTenantOwner, Scope: ScopeTenant, ScopeContextID: "t1"},
			},
			want: false,
		},
		{
			name:        "no assignments",
			assignments: nil,
			want:        false,
		},
		{
			name: "mixed assignments",
			assignments: []RoleAssignment{
				{RoleID: "r2", RoleName: RoleTenantOwner, Scope: ScopeTenant, ScopeContextID: "t1"},
				{RoleID: "r1", RoleName: RolePlatformAdmin, Scope: ScopePlatform},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlatformAdmin(tt.assignments))
		})
	}
}

func TestIsTenantAdmin(t *testing.T) {
	tests := []struct {
		name        string
		assignments []RoleAssignment
		want        bool
	}{
		{
			name: "tenant admin",
			assignments: []RoleAssignment{
				{RoleID: "r1", RoleName: RoleTenantAdmin, Scope: ScopeTenant, ScopeContextID: "t1"},
			},
			want: true,
		},
		{
			name: "tenant owner",
			assignments: []RoleAssignment{
				{RoleID: "r1", RoleName: RoleTenantOwner, Scope: ScopeTenant, ScopeContextID: "t1"},
			},
			want: true,
		},
		{
			name: "tenant_admin name at platform scope does not count",
			assignments: []RoleAssignment{
				{RoleID: "r1", RoleName: RoleTenantAdmin, Scope: ScopePlatform},
			},
			want: false,
		},
		{
			name: "platform admin only",
			assignments: []RoleAssignment{
				{RoleID: "r1", RoleName: RolePlatformAdmin, Scope: ScopePlatform},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTenantAdmin(tt.assignments))
		})
	}
}

func TestCurrentSession_Validate(t *testing.T) {
	valid := CurrentSession{
		User: User{ID: "u1", Email: "admin@example.com", EmailVerified: true},
		RoleAssignments: []RoleAssignment{
			{RoleID: "r1", RoleName: RolePlatformAdmin, Scope: ScopePlatform},
		},
	}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.User.ID = ""
	assert.True(t, apperrors.IsValidation(missingID.Validate()))

	missingEmail := valid
	missingEmail.User = User{ID: "u1"}
	assert.True(t, apperrors.IsValidation(missingEmail.Validate()))

	badScope := valid
	badScope.RoleAssignments = []RoleAssignment{{RoleID: "r1", RoleName: "x", Scope: "global"}}
	assert.True(t, apperrors.IsValidation(badScope.Validate()))

	emptyRole := valid
	emptyRole.RoleAssignments = []RoleAssignment{{RoleID: "r1", Scope: ScopeTenant}}
	assert.True(t, apperrors.IsValidation(emptyRole.Validate()))

	badTenant := valid
	badTenant.CurrentTenant = &TenantContext{TenantName: "Acme"}
	assert.True(t, apperrors.IsValidation(badTenant.Validate()))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "a@b.c", User{Email: "a@b.c"}.DisplayName())
	assert.Equal(t, "Ada", User{Email: "a@b.c", Profile: &Profile{GivenName: "Ada"}}.DisplayName())
	assert.Equal(t, "Ada Lovelace", User{Email: "a@b.c", Profile: &Profile{GivenName: "Ada", FullName: "Ada Lovelace"}}.DisplayName())
}

func TestConsoleSession_Expired(t *testing.T) {
	now := time.Now()
	s := ConsoleSession{ID: "cs1", ExpiresAt: now.Add(time.Hour)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(2*time.Hour)))
}
