// Package guard holds the pure access-control decisions for guarded console
// regions. Guards never perform I/O; they evaluate a session snapshot and
// return a decision the HTTP layer renders (redirect, denial page, or the
// requested page).
package guard

import "github.com/opentrusty/console/internal/session"

// Kind discriminates guard decisions.
type Kind int

const (
	// Allow grants access to the requested region.
	Allow Kind = iota
	// Loading means a session check is in flight and no access decision
	// can be made yet. Evaluated before every other predicate so an
	// unresolved session never produces a premature redirect or denial.
	Loading
	// RedirectLogin sends an unauthenticated actor to the login page,
	// preserving the originally requested path.
	RedirectLogin
	// AccessDenied means the actor is authenticated but lacks the role the
	// region requires.
	AccessDenied
	// ConfigError means the actor's role data is internally inconsistent
	// and the region cannot be safely entered. Distinct from AccessDenied
	// so operators see a configuration diagnostic, not a permissions one.
	ConfigError
)

// Decision is the outcome of evaluating a guard against a session snapshot.
type Decision struct {
	Kind Kind
	// From is the originally requested path, set on RedirectLogin so the
	// login flow can return the actor there afterwards.
	From string
	// Reason is a human-readable diagnostic for AccessDenied and
	// ConfigError decisions.
	Reason string
}

func allow() Decision { return Decision{Kind: Allow} }

func loading() Decision { return Decision{Kind: Loading} }

func redirect(from string) Decision { return Decision{Kind: RedirectLogin, From: from} }

// RequireAuth admits any authenticated actor.
func RequireAuth(snap session.Snapshot, from string) Decision {
	if snap.Loading {
		return loading()
	}
	if !snap.Authenticated {
		return redirect(from)
	}
	return allow()
}

// RequirePlatformAdmin admits only actors holding platform_admin at platform
// scope.
func RequirePlatformAdmin(snap session.Snapshot, from string) Decision {
	if snap.Loading {
		return loading()
	}
	if !snap.Authenticated {
		return redirect(from)
	}
	if !snap.IsPlatformAdmin() {
		return Decision{Kind: AccessDenied, Reason: "platform administrator role required"}
	}
	return allow()
}

// RequireTenantAdmin admits actors holding tenant_admin or tenant_owner at
// tenant scope. A tenant-admin session with no tenant context is a role
// configuration fault, not a permissions failure.
func RequireTenantAdmin(snap session.Snapshot, from string) Decision {
	if snap.Loading {
		return loading()
	}
	if !snap.Authenticated {
		return redirect(from)
	}
	if !snap.IsTenantAdmin() {
		return Decision{Kind: AccessDenied, Reason: "tenant administrator role required"}
	}
	if snap.TenantID == "" {
		return Decision{Kind: ConfigError, Reason: "tenant administrator session has no tenant context"}
	}
	return allow()
}
