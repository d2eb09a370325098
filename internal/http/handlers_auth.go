package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/opentrusty/console/internal/adapters/authroles"
	"github.com/opentrusty/console/internal/adapters/oidc"
	apperrors "github.com/opentrusty/console/internal/errors"
	"github.com/opentrusty/console/internal/session"
)

const (
	oidcStateCookie    = "oidc_state"
	oidcNonceCookie    = "oidc_nonce"
	oidcRedirectCookie = "oidc_redirect"
)

// SessionCookieConfig describes the console's own session cookie.
type SessionCookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// OIDCFlow groups the pieces of the OIDC login mode. Nil when the console
// runs in password mode.
type OIDCFlow struct {
	Provider *oidc.Provider
	// Roles maps id_token claims to role assignments for display before the
	// first session check lands. Optional.
	Roles *authroles.ClaimsMapper
}

// AuthHandlers provides HTTP handlers for console authentication.
type AuthHandlers struct {
	Sessions *session.Manager
	Renderer *TemplateRenderer
	Cookie   SessionCookieConfig
	OIDC     *OIDCFlow
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginPageData struct {
	RedirectURI string
	OIDCEnabled bool
}

// LoginPage handles GET /login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirectURI := sanitizeRedirect(r.URL.Query().Get("redirect_uri"))
	if snapshotFromContext(r.Context()).Authenticated {
		http.Redirect(w, r, redirectURI, http.StatusSeeOther)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "login.html", pageData(r, "Sign in", loginPageData{
		RedirectURI: redirectURI,
		OIDCEnabled: h.OIDC != nil,
	}))
}

// LoginSubmit handles POST /login (password mode).
func (h *AuthHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	redirectURI := sanitizeRedirect(r.PostFormValue("redirect_uri"))

	if email == "" || password == "" {
		h.renderLoginError(w, r, http.StatusBadRequest, redirectURI, "Email and password are required.")
		return
	}

	handle, created, err := h.currentOrNewHandle(r)
	if err != nil {
		h.logger().Error("create console session", "error", err)
		h.renderLoginError(w, r, http.StatusInternalServerError, redirectURI, "Unable to start a session. Try again.")
		return
	}

	if err := handle.Store.Login(r.Context(), email, password); err != nil {
		msg := "Sign-in failed. Try again."
		if apperrors.IsUnauthorized(err) {
			msg = "Invalid email or password."
		}
		h.logger().Info("login rejected", "error", err)
		h.renderLoginError(w, r, http.StatusUnauthorized, redirectURI, msg)
		return
	}

	if err := h.Sessions.Persist(r.Context(), handle); err != nil {
		h.logger().Error("persist console session", "error", err)
	}
	if created {
		h.setSessionCookie(w, handle.ID)
	}
	http.Redirect(w, r, redirectURI, http.StatusSeeOther)
}

// Logout handles POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if handle, ok := HandleFromContext(r.Context()); ok {
		h.Sessions.Destroy(r.Context(), handle)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type sessionResponse struct {
	Authenticated   bool           `json:"authenticated"`
	Loading         bool           `json:"loading"`
	User            any            `json:"user,omitempty"`
	IsPlatformAdmin bool           `json:"is_platform_admin"`
	IsTenantAdmin   bool           `json:"is_tenant_admin"`
	Tenant          map[string]any `json:"tenant,omitempty"`
}

// SessionInfo handles GET /auth/session.
func (h *AuthHandlers) SessionInfo(w http.ResponseWriter, r *http.Request) {
	snap := snapshotFromContext(r.Context())
	resp := sessionResponse{
		Authenticated:   snap.Authenticated,
		Loading:         snap.Loading,
		IsPlatformAdmin: snap.IsPlatformAdmin(),
		IsTenantAdmin:   snap.IsTenantAdmin(),
	}
	if snap.User != nil {
		resp.User = snap.User
	}
	if snap.TenantID != "" {
		resp.Tenant = map[string]any{"tenant_id": snap.TenantID, "tenant_name": snap.TenantName}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// OIDCBegin handles GET /auth/oidc, redirecting to the platform issuer.
func (h *AuthHandlers) OIDCBegin(w http.ResponseWriter, r *http.Request) {
	if h.OIDC == nil {
		http.NotFound(w, r)
		return
	}

	result, err := h.OIDC.Provider.Begin()
	if err != nil {
		h.logger().Error("begin oidc flow", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	redirectURI := sanitizeRedirect(r.URL.Query().Get("redirect_uri"))
	h.setFlowCookie(w, r, oidcStateCookie, result.State)
	h.setFlowCookie(w, r, oidcNonceCookie, result.Nonce)
	h.setFlowCookie(w, r, oidcRedirectCookie, redirectURI)

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// OIDCCallback handles GET /auth/callback.
func (h *AuthHandlers) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.OIDC == nil {
		http.NotFound(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.renderLoginError(w, r, http.StatusBadRequest, "/", "The sign-in response was incomplete.")
		return
	}

	stateCookie, err := r.Cookie(oidcStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.renderLoginError(w, r, http.StatusBadRequest, "/", "The sign-in attempt could not be verified.")
		return
	}
	nonce := ""
	if nonceCookie, cookieErr := r.Cookie(oidcNonceCookie); cookieErr == nil {
		nonce = nonceCookie.Value
	}
	redirectURI := "/"
	if redirectCookie, cookieErr := r.Cookie(oidcRedirectCookie); cookieErr == nil {
		redirectURI = sanitizeRedirect(redirectCookie.Value)
	}
	h.clearFlowCookies(w)

	cred, err := h.OIDC.Provider.Exchange(r.Context(), code, nonce)
	if err != nil {
		h.logger().Warn("oidc exchange failed", "error", err)
		h.renderLoginError(w, r, http.StatusUnauthorized, redirectURI, "Sign-in failed. Try again.")
		return
	}

	// When a role projection is configured, reject accounts with no console
	// role before spending a session on them.
	if h.OIDC.Roles != nil {
		assignments, mapErr := h.OIDC.Roles.Map(cred.Claims)
		if mapErr != nil {
			h.logger().Warn("map role claims", "error", mapErr)
		} else if len(assignments) == 0 {
			h.renderLoginError(w, r, http.StatusForbidden, redirectURI, "This account has no console role.")
			return
		}
	}

	handle, err := h.Sessions.Create()
	if err != nil {
		h.logger().Error("create console session", "error", err)
		h.renderLoginError(w, r, http.StatusInternalServerError, redirectURI, "Unable to start a session. Try again.")
		return
	}
	handle.Client.SetBearer(cred.Bearer)
	handle.Store.CheckSession(r.Context())
	if !handle.Store.Snapshot().Authenticated {
		h.Sessions.Destroy(r.Context(), handle)
		h.renderLoginError(w, r, http.StatusUnauthorized, redirectURI, "The platform rejected the issued credential.")
		return
	}

	if err := h.Sessions.Persist(r.Context(), handle); err != nil {
		h.logger().Error("persist console session", "error", err)
	}
	h.setSessionCookie(w, handle.ID)
	http.Redirect(w, r, redirectURI, http.StatusSeeOther)
}

func (h *AuthHandlers) renderLoginError(w http.ResponseWriter, r *http.Request, status int, redirectURI, msg string) {
	data := pageData(r, "Sign in", loginPageData{RedirectURI: redirectURI, OIDCEnabled: h.OIDC != nil})
	data.Error = msg
	h.Renderer.Render(w, status, "login.html", data)
}

// currentOrNewHandle reuses the request's console session when one exists.
// A new handle stays detached; it only gets a record and a cookie once the
// login succeeds and the caller persists it.
func (h *AuthHandlers) currentOrNewHandle(r *http.Request) (*session.Handle, bool, error) {
	if handle, ok := HandleFromContext(r.Context()); ok {
		return handle, false, nil
	}
	handle, err := h.Sessions.Create()
	if err != nil {
		return nil, false, err
	}
	return handle, true, nil
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    id,
		Path:     "/",
		Domain:   h.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (h *AuthHandlers) setFlowCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   r.TLS != nil || isForwardedHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
}

func (h *AuthHandlers) clearFlowCookies(w http.ResponseWriter) {
	for _, name := range []string{oidcStateCookie, oidcNonceCookie, oidcRedirectCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/auth", MaxAge: -1})
	}
}

// sanitizeRedirect allows only same-origin relative paths; anything else
// falls back to the console root.
func sanitizeRedirect(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	// Browsers treat backslashes in the authority position like slashes, so
	// "/\evil.test" navigates off-site even though url.Parse keeps it a path.
	if strings.ContainsRune(u.Path, '\\') {
		return "/"
	}
	out := u.Path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}
