package auth

// Package auth contains domain-level types for identity and authorization.
// It is pure and free of framework/adapter concerns.

import (
	"time"

	apperrors "github.com/opentrusty/console/internal/errors"
)

// RoleScope is the scope a role assignment applies to.
type RoleScope string

const (
	// ScopePlatform spans the entire multi-tenant system.
	ScopePlatform RoleScope = "platform"
	// ScopeTenant is limited to a single tenant's resources.
	ScopeTenant RoleScope = "tenant"
)

// Role names recognized by the console. The management API owns the full set;
// the console only interprets the ones that gate navigation.
const (
	RolePlatformAdmin = "platform_admin"
	RoleTenantAdmin   = "tenant_admin"
	RoleTenantOwner   = "tenant_owner"
)

// Profile holds optional display-name fields on a user record.
type Profile struct {
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	FullName   string `json:"full_name,omitempty"`
}

// User is the identity record returned by the management API.
type User struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	Profile       *Profile `json:"profile,omitempty"`
}

// DisplayName returns the best available human-readable name for the user.
func (u User) DisplayName() string {
	if u.Profile != nil {
		if u.Profile.FullName != "" {
			return u.Profile.FullName
		}
		if u.Profile.GivenName != "" {
			return u.Profile.GivenName
		}
	}
	return u.Email
}

// RoleAssignment is an immutable value snapshot of one role the current user
// holds. Assignments are replaced wholesale on each session check, never
// mutated individually.
type RoleAssignment struct {
	RoleID         string    `json:"role_id"`
	RoleName       string    `json:"role_name"`
	Scope          RoleScope `json:"scope"`
	ScopeContextID string    `json:"scope_context_id,omitempty"`
}

// TenantContext is the current-tenant descriptor carried by a session check
// response for tenant-scoped sessions.
type TenantContext struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
}

// CurrentSession is the management API's answer to "who is currently
// authenticated, and with what roles".
type CurrentSession struct {
	User            User             `json:"user"`
	RoleAssignments []RoleAssignment `json:"role_assignments,omitempty"`
	CurrentTenant   *TenantContext   `json:"current_tenant,omitempty"`
}

// Validate rejects malformed session-check payloads at the boundary so
// undefined shapes never propagate into session state.
func (c *CurrentSession) Validate() error {
	if c.User.ID == "" {
		return apperrors.Validation("session payload missing user id")
	}
	if c.User.Email == "" {
		return apperrors.Validation("session payload missing user email")
	}
	for _, ra := range c.RoleAssignments {
		if ra.Scope != ScopePlatform && ra.Scope != ScopeTenant {
			return apperrors.Validationf("role assignment %q has unknown scope %q", ra.RoleName, ra.Scope)
		}
		if ra.RoleName == "" {
			return apperrors.Validation("role assignment missing role name")
		}
	}
	if c.CurrentTenant != nil && c.CurrentTenant.TenantID == "" {
		return apperrors.Validation("current tenant descriptor missing tenant id")
	}
	return nil
}

// IsPlatformAdmin reports whether any assignment grants the platform_admin
// role at platform scope.
func IsPlatformAdmin(assignments []RoleAssignment) bool {
	for _, ra := range assignments {
		if ra.Scope == ScopePlatform && ra.RoleName == RolePlatformAdmin {
			return true
		}
	}
	return false
}

// IsTenantAdmin reports whether any assignment grants tenant_admin or
// tenant_owner at tenant scope.
func IsTenantAdmin(assignments []RoleAssignment) bool {
	for _, ra := range assignments {
		if ra.Scope == ScopeTenant && (ra.RoleName == RoleTenantAdmin || ra.RoleName == RoleTenantOwner) {
			return true
		}
	}
	return false
}

// LoginResult is the minimal payload returned by a successful credential login.
// Full identity and role state comes from the follow-up session check.
type LoginResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// CredentialCookie is one upstream session cookie persisted with a console
// session so the upstream credential survives console restarts.
type CredentialCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConsoleSession is the server-side record the console persists per browser.
// ID is an opaque identifier carried in the console's own session cookie.
type ConsoleSession struct {
	ID        string             `json:"id"`
	Cookies   []CredentialCookie `json:"cookies,omitempty"`
	Bearer    string             `json:"bearer,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Expired reports whether the console session is past its expiry.
func (s ConsoleSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
