package httpx

import (
	"net/http"

	apperrors "github.com/opentrusty/console/internal/errors"
)

// RenderUpstreamError maps a management API error to the matching console
// view. Unauthorized sends the actor back to login; the session store has
// already been cleared by the time the error surfaces here.
func (tr *TemplateRenderer) RenderUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.IsUnauthorized(err):
		redirectToLogin(w, r, r.URL.Path)
	case apperrors.IsForbidden(err):
		data := pageData(r, "Access denied", nil)
		data.Error = err.Error()
		tr.Render(w, http.StatusForbidden, "access_denied.html", data)
	case apperrors.IsConfigInconsistent(err):
		data := pageData(r, "Configuration error", nil)
		data.Error = err.Error()
		tr.Render(w, http.StatusInternalServerError, "config_error.html", data)
	case apperrors.IsValidation(err):
		data := pageData(r, "Invalid request", nil)
		data.Error = err.Error()
		tr.Render(w, http.StatusBadRequest, "error.html", data)
	default:
		status := apperrors.GetStatus(err)
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		data := pageData(r, "Upstream error", map[string]any{"Status": status})
		data.Error = err.Error()
		tr.Render(w, status, "error.html", data)
	}
}
