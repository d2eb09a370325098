package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/console/internal/guard"
	"github.com/opentrusty/console/internal/session"
)

func testRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	renderer, err := NewTemplateRenderer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return renderer
}

func serveGuarded(t *testing.T, check GuardFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := RequireGuard(check, testRenderer(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("guarded content"))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRequireGuard_AllowRunsHandler(t *testing.T) {
	allow := func(session.Snapshot, string) guard.Decision {
		return guard.Decision{Kind: guard.Allow}
	}
	w := serveGuarded(t, allow, "/platform")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "guarded content")
}

func TestRequireGuard_RedirectCarriesOrigin(t *testing.T) {
	w := serveGuarded(t, guard.RequireAuth, "/platform/tenants")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?redirect_uri=%2Fplatform%2Ftenants", w.Header().Get("Location"))
}

func TestRequireGuard_LoadingRendersRetry(t *testing.T) {
	loading := func(session.Snapshot, string) guard.Decision {
		return guard.Decision{Kind: guard.Loading}
	}
	w := serveGuarded(t, loading, "/platform")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Checking your session")
}

func TestRequireGuard_AccessDeniedShowsReason(t *testing.T) {
	denied := func(session.Snapshot, string) guard.Decision {
		return guard.Decision{Kind: guard.AccessDenied, Reason: "platform administrator role required"}
	}
	w := serveGuarded(t, denied, "/platform")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "platform administrator role required")
}

func TestRequireGuard_ConfigErrorRenders500(t *testing.T) {
	broken := func(session.Snapshot, string) guard.Decision {
		return guard.Decision{Kind: guard.ConfigError, Reason: "tenant administrator session has no tenant context"}
	}
	w := serveGuarded(t, broken, "/tenant")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Configuration error")
}
