package httpx

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/opentrusty/console/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer renders HTML templates for console pages.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// NewTemplateRenderer parses the embedded console templates.
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// PageData is the envelope every console template receives.
type PageData struct {
	Title     string
	CSRFToken string
	Session   session.Snapshot
	// Error is a user-facing message rendered in the page's alert slot.
	Error string
	// Data carries page-specific payload.
	Data any
}

// Render executes the named template into a buffer first so a template
// error never emits a half-written page.
func (tr *TemplateRenderer) Render(w http.ResponseWriter, status int, name string, data PageData) {
	var buf bytes.Buffer
	if err := tr.t.ExecuteTemplate(&buf, name, data); err != nil {
		tr.logger.Error("render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

// pageData builds the common envelope from the request.
func pageData(r *http.Request, title string, data any) PageData {
	return PageData{
		Title:     title,
		CSRFToken: GetCSRFToken(r),
		Session:   snapshotFromContext(r.Context()),
		Data:      data,
	}
}
