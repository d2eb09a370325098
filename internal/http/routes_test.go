package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/console/internal/api"
	"github.com/opentrusty/console/internal/domain/auth"
	"github.com/opentrusty/console/internal/session"
)

// testRecords is a minimal in-memory console session record store.
type testRecords struct {
	mu sync.Mutex
	m  map[string]auth.ConsoleSession
}

func (s *testRecords) Save(_ context.Context, rec auth.ConsoleSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]auth.ConsoleSession{}
	}
	s.m[rec.ID] = rec
	return nil
}

func (s *testRecords) Get(_ context.Context, id string) (auth.ConsoleSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[id]
	if !ok {
		return auth.ConsoleSession{}, session.ErrNotFound
	}
	return rec, nil
}

func (s *testRecords) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *testRecords) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// managementAPI fakes the upstream management API with a cookie credential.
type managementAPI struct {
	mu sync.Mutex
	// me is the payload returned by auth/me for a credentialed request.
	me auth.CurrentSession
}

const managementCookie = "ot_session"

func (u *managementAPI) setMe(me auth.CurrentSession) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.me = me
}

func (u *managementAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: managementCookie, Value: "cred-1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(managementCookie); err != nil || c.Value != "cred-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"no session"}`))
			return
		}
		u.mu.Lock()
		me := u.me
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(me)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_tenants":3,"total_users":40,"total_oauth_clients":7}`))
	})
	mux.HandleFunc("GET /tenants", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"t1","name":"Acme","status":"active","created_at":"2026-01-01T00:00:00Z"}]`))
	})
	mux.HandleFunc("GET /tenants/t1/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_users":5,"total_clients":2,"audit_count_24h":11}`))
	})
	mux.HandleFunc("GET /tenants/t1/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clients":[{"id":"c1","client_id":"cid-1","client_name":"Dashboard","client_type":"spa","tenant_id":"t1","created_at":"2026-02-01T00:00:00Z"}],"total":1}`))
	})
	mux.HandleFunc("POST /tenants/t1/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"client":{"id":"c1","client_id":"cid-1","client_name":"Dashboard","client_type":"spa","tenant_id":"t1"},"client_secret":"shown-once-9f2"}`))
	})
	return mux
}

func platformAdminMe() auth.CurrentSession {
	return auth.CurrentSession{
		User: auth.User{ID: "u1", Email: "root@example.com"},
		RoleAssignments: []auth.RoleAssignment{
			{RoleID: "r1", RoleName: "platform_admin", Scope: auth.ScopePlatform},
		},
	}
}

func tenantAdminMe() auth.CurrentSession {
	return auth.CurrentSession{
		User: auth.User{ID: "u2", Email: "owner@acme.test"},
		RoleAssignments: []auth.RoleAssignment{
			{RoleID: "r2", RoleName: "tenant_owner", Scope: auth.ScopeTenant, ScopeContextID: "t1"},
		},
		CurrentTenant: &auth.TenantContext{TenantID: "t1", TenantName: "Acme"},
	}
}

// consoleEnv is a running console server wired to a fake management API.
type consoleEnv struct {
	Console  *httptest.Server
	Upstream *managementAPI
	Client   *http.Client
	Records  *testRecords
}

func newConsoleEnv(t *testing.T) *consoleEnv {
	t.Helper()

	upstream := &managementAPI{}
	upstreamSrv := httptest.NewServer(upstream.handler())
	t.Cleanup(upstreamSrv.Close)

	records := &testRecords{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := NewTemplateRenderer(logger)
	require.NoError(t, err)

	sessions := session.NewManager(session.ManagerOptions{
		Records: records,
		NewClient: func() (*api.Client, error) {
			return api.NewClient(api.Config{BaseURL: upstreamSrv.URL})
		},
		Logger: logger,
	})

	router := NewRouter(RouterServices{
		Sessions: sessions,
		Renderer: renderer,
		Cookie:   SessionCookieConfig{Name: "console_session"},
		Logger:   logger,
	})
	consoleSrv := httptest.NewServer(router)
	t.Cleanup(consoleSrv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &consoleEnv{Console: consoleSrv, Upstream: upstream, Client: client, Records: records}
}

// login drives the browser login flow: fetch the form for a CSRF cookie,
// then post credentials.
func (e *consoleEnv) login(t *testing.T, email, password string) *http.Response {
	t.Helper()

	resp, err := e.Client.Get(e.Console.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{
		"email":      {email},
		"password":   {password},
		"csrf_token": {e.csrfToken(t)},
	}
	resp, err = e.Client.PostForm(e.Console.URL+"/login", form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (e *consoleEnv) csrfToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.Console.URL)
	require.NoError(t, err)
	for _, c := range e.Client.Jar.Cookies(u) {
		if c.Name == DefaultCSRFCookieName {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie in jar")
	return ""
}

func (e *consoleEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.Client.Get(e.Console.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	return resp, string(body)
}

func TestRoutes_Healthz(t *testing.T) {
	env := newConsoleEnv(t)

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestRoutes_UnauthenticatedRedirectsToLogin(t *testing.T) {
	env := newConsoleEnv(t)

	resp, _ := env.get(t, "/platform")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "/login")
	assert.Contains(t, loc, "redirect_uri=%2Fplatform")
}

func TestRoutes_LoginRejectedWithBadPassword(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(platformAdminMe())

	resp := env.login(t, "root@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_RejectedLoginLeavesNoSessionBehind(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(platformAdminMe())

	resp := env.login(t, "root@example.com", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Zero(t, env.Records.count(), "a rejected login must not persist a console session record")
	resp, _ = env.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login")
}

func TestRoutes_PlatformAdminFlow(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(platformAdminMe())

	resp := env.login(t, "root@example.com", "correct-horse")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := env.get(t, "/platform")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Platform overview")
	assert.Contains(t, body, "40")

	resp, body = env.get(t, "/platform/tenants")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Acme")

	// Platform role does not grant the tenant region.
	resp, body = env.get(t, "/tenant")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "Access denied")
}

func TestRoutes_TenantAdminFlow(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(tenantAdminMe())

	resp := env.login(t, "owner@acme.test", "correct-horse")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := env.get(t, "/tenant")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "11")

	resp, _ = env.get(t, "/platform")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRoutes_ClientRegistrationShowsSecretOnce(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(tenantAdminMe())

	resp := env.login(t, "owner@acme.test", "correct-horse")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	form := url.Values{
		"csrf_token":    {env.csrfToken(t)},
		"client_name":   {"Dashboard"},
		"redirect_uris": {"https://app.acme.test/cb"},
	}
	resp, err := env.Client.PostForm(env.Console.URL+"/tenant/clients", form)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Client Dashboard registered.")
	assert.Contains(t, string(body), "shown-once-9f2")

	// The secret never reappears on a plain listing.
	resp, listing := env.get(t, "/tenant/clients")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, listing, "shown-once-9f2")
}

func TestRoutes_SessionInfoJSON(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(tenantAdminMe())

	resp := env.login(t, "owner@acme.test", "correct-horse")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := env.get(t, "/auth/session")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload struct {
		Authenticated  bool `json:"authenticated"`
		IsTenantAdmin  bool `json:"is_tenant_admin"`
		IsPlatformAdmn bool `json:"is_platform_admin"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.True(t, payload.Authenticated)
	assert.True(t, payload.IsTenantAdmin)
	assert.False(t, payload.IsPlatformAdmn)
}

func TestRoutes_LogoutClearsSession(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(platformAdminMe())

	resp := env.login(t, "root@example.com", "correct-horse")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	form := url.Values{"csrf_token": {env.csrfToken(t)}}
	resp, err := env.Client.PostForm(env.Console.URL+"/auth/logout", form)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/platform")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login")
}

func TestRoutes_HomeShowsRoleLinks(t *testing.T) {
	env := newConsoleEnv(t)
	env.Upstream.setMe(platformAdminMe())

	resp := env.login(t, "root@example.com", "correct-horse")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/platform")
	assert.False(t, strings.Contains(body, "/tenant/users"))
}
