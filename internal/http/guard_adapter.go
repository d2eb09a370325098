package httpx

import (
	"net/http"
	"net/url"

	"github.com/opentrusty/console/internal/guard"
	"github.com/opentrusty/console/internal/session"
)

// GuardFunc is the signature shared by the route-guard decision functions.
type GuardFunc func(session.Snapshot, string) guard.Decision

// RequireGuard returns a middleware enforcing a guard over a console region.
// The guarded handler only runs on an Allow decision.
func RequireGuard(check GuardFunc, renderer *TemplateRenderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := check(snapshotFromContext(r.Context()), r.URL.Path)
			if !applyDecision(w, r, renderer, decision) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// applyDecision renders non-Allow decisions and reports whether the request
// may proceed.
func applyDecision(w http.ResponseWriter, r *http.Request, renderer *TemplateRenderer, d guard.Decision) bool {
	switch d.Kind {
	case guard.Allow:
		return true
	case guard.Loading:
		// A session check is in flight; tell the browser to retry shortly.
		w.Header().Set("Retry-After", "1")
		renderer.Render(w, http.StatusServiceUnavailable, "loading.html", pageData(r, "Checking session", nil))
	case guard.RedirectLogin:
		redirectToLogin(w, r, d.From)
	case guard.AccessDenied:
		data := pageData(r, "Access denied", nil)
		data.Error = d.Reason
		renderer.Render(w, http.StatusForbidden, "access_denied.html", data)
	case guard.ConfigError:
		data := pageData(r, "Configuration error", nil)
		data.Error = d.Reason
		renderer.Render(w, http.StatusInternalServerError, "config_error.html", data)
	}
	return false
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, from string) {
	target := "/login"
	if from != "" && from != "/login" {
		target += "?redirect_uri=" + url.QueryEscape(from)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
