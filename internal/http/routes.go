package httpx

import (
	"log/slog"
	"net/http"

	"github.com/opentrusty/console/internal/guard"
	"github.com/opentrusty/console/internal/session"
)

// RouterServices holds everything the console router needs.
type RouterServices struct {
	Sessions *session.Manager
	Renderer *TemplateRenderer
	Cookie   SessionCookieConfig
	// OIDC enables the single sign-on login mode when set.
	OIDC *OIDCFlow
	// AuditSummaryExpr projects audit metadata into list summaries.
	AuditSummaryExpr string
	CookieDomain     string
	CookieSecure     bool
	Logger           *slog.Logger
}

// NewRouter builds the console's HTTP handler with the full middleware
// chain. The order matters: logging and recovery wrap everything, CSRF
// runs before session resolution so login forms are covered too.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Sessions: services.Sessions,
		Renderer: services.Renderer,
		Cookie:   services.Cookie,
		OIDC:     services.OIDC,
		Logger:   services.Logger,
	}
	platformHandlers := &PlatformHandlers{
		Renderer:         services.Renderer,
		AuditSummaryExpr: services.AuditSummaryExpr,
		Logger:           services.Logger,
	}
	tenantHandlers := &TenantHandlers{
		Renderer:         services.Renderer,
		AuditSummaryExpr: services.AuditSummaryExpr,
		Logger:           services.Logger,
	}

	registerAuthRoutes(mux, authHandlers)
	registerPlatformRoutes(mux, platformHandlers, services.Renderer)
	registerTenantRoutes(mux, tenantHandlers, services.Renderer)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	requireAuth := RequireGuard(guard.RequireAuth, services.Renderer)
	mux.Handle("GET /{$}", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		services.Renderer.Render(w, http.StatusOK, "home.html", pageData(r, "Console", nil))
	})))

	var handler http.Handler = mux
	handler = ConsoleSession(services.Sessions, services.Cookie.Name, services.Logger)(handler)
	handler = CSRFProtection(CSRFConfig{
		CookieDomain: services.CookieDomain,
	})(handler)
	handler = Recover(services.Logger)(handler)
	handler = Logging(services.Logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("GET /login", http.HandlerFunc(h.LoginPage))
	mux.Handle("POST /login", http.HandlerFunc(h.LoginSubmit))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("GET /auth/session", http.HandlerFunc(h.SessionInfo))
	if h.OIDC != nil {
		mux.Handle("GET /auth/oidc", http.HandlerFunc(h.OIDCBegin))
		mux.Handle("GET /auth/callback", http.HandlerFunc(h.OIDCCallback))
	}
}

func registerPlatformRoutes(mux *http.ServeMux, h *PlatformHandlers, renderer *TemplateRenderer) {
	g := RequireGuard(guard.RequirePlatformAdmin, renderer)
	mux.Handle("GET /platform", g(http.HandlerFunc(h.Overview)))
	mux.Handle("GET /platform/tenants", g(http.HandlerFunc(h.Tenants)))
	mux.Handle("POST /platform/tenants", g(http.HandlerFunc(h.TenantCreate)))
	mux.Handle("GET /platform/tenants/{id}", g(http.HandlerFunc(h.TenantDetail)))
	mux.Handle("POST /platform/tenants/{id}/delete", g(http.HandlerFunc(h.TenantDelete)))
	mux.Handle("GET /platform/audit", g(http.HandlerFunc(h.Audit)))
}

func registerTenantRoutes(mux *http.ServeMux, h *TenantHandlers, renderer *TemplateRenderer) {
	g := RequireGuard(guard.RequireTenantAdmin, renderer)
	mux.Handle("GET /tenant", g(http.HandlerFunc(h.Overview)))
	mux.Handle("GET /tenant/users", g(http.HandlerFunc(h.Users)))
	mux.Handle("POST /tenant/users", g(http.HandlerFunc(h.UserProvision)))
	mux.Handle("POST /tenant/users/{id}/roles", g(http.HandlerFunc(h.UserRoleAssign)))
	mux.Handle("POST /tenant/users/{id}/roles/revoke", g(http.HandlerFunc(h.UserRoleRevoke)))
	mux.Handle("POST /tenant/users/{id}/nickname", g(http.HandlerFunc(h.UserNickname)))
	mux.Handle("GET /tenant/clients", g(http.HandlerFunc(h.Clients)))
	mux.Handle("POST /tenant/clients", g(http.HandlerFunc(h.ClientCreate)))
	mux.Handle("GET /tenant/clients/{id}", g(http.HandlerFunc(h.ClientDetail)))
	mux.Handle("POST /tenant/clients/{id}", g(http.HandlerFunc(h.ClientUpdate)))
	mux.Handle("POST /tenant/clients/{id}/secret", g(http.HandlerFunc(h.ClientRegenerateSecret)))
	mux.Handle("POST /tenant/clients/{id}/delete", g(http.HandlerFunc(h.ClientDelete)))
	mux.Handle("GET /tenant/audit", g(http.HandlerFunc(h.Audit)))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
