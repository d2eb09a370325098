package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opentrusty/console/internal/api"
	"github.com/opentrusty/console/internal/domain/auth"
	"github.com/opentrusty/console/internal/domain/model"
	apperrors "github.com/opentrusty/console/internal/errors"
)

// PlatformHandlers serves the platform-administration region. Every handler
// builds its API services from the caller's own session handle so upstream
// calls carry that session's credentials.
type PlatformHandlers struct {
	Renderer *TemplateRenderer
	// AuditSummaryExpr projects audit metadata into list summaries.
	AuditSummaryExpr string
	Logger           *slog.Logger
}

func (h *PlatformHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type platformOverviewData struct {
	Metrics *model.PlatformMetrics
}

// Overview handles GET /platform.
func (h *PlatformHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, r.URL.Path)
		return
	}

	metrics, err := api.NewPlatformService(handle.Client).Metrics(r.Context())
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "platform_overview.html", pageData(r, "Platform overview", platformOverviewData{
		Metrics: metrics,
	}))
}

type tenantListData struct {
	Tenants []model.Tenant
	// Created carries the one-time admin credentials of a tenant created by
	// the previous request. Shown once, never persisted.
	Created *model.CreateTenantResponse
	Error   string
}

// Tenants handles GET /platform/tenants.
func (h *PlatformHandlers) Tenants(w http.ResponseWriter, r *http.Request) {
	h.renderTenants(w, r, tenantListData{})
}

func (h *PlatformHandlers) renderTenants(w http.ResponseWriter, r *http.Request, data tenantListData) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, "/platform/tenants")
		return
	}

	tenants, err := api.NewTenantService(handle.Client).List(r.Context())
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}
	data.Tenants = tenants

	pd := pageData(r, "Tenants", data)
	pd.Error = data.Error
	h.Renderer.Render(w, http.StatusOK, "tenants.html", pd)
}

// TenantCreate handles POST /platform/tenants.
func (h *PlatformHandlers) TenantCreate(w http.ResponseWriter, r *http.Request) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, "/platform/tenants")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := &model.CreateTenantRequest{
		Name:       strings.TrimSpace(r.PostFormValue("name")),
		AdminEmail: strings.TrimSpace(r.PostFormValue("admin_email")),
		AdminName:  strings.TrimSpace(r.PostFormValue("admin_name")),
	}
	if err := req.Validate(); err != nil {
		h.renderTenants(w, r, tenantListData{Error: err.Error()})
		return
	}

	created, err := api.NewTenantService(handle.Client).Create(r.Context(), req)
	if err != nil {
		if apperrors.IsValidation(err) {
			h.renderTenants(w, r, tenantListData{Error: err.Error()})
			return
		}
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.logger().Info("tenant created", "tenant_id", created.ID, "name", created.Name)
	h.renderTenants(w, r, tenantListData{Created: created})
}

type tenantDetailData struct {
	Tenant  *model.Tenant
	Metrics *model.TenantMetrics
	Users   []auth.User
}

// TenantDetail handles GET /platform/tenants/{id}.
func (h *PlatformHandlers) TenantDetail(w http.ResponseWriter, r *http.Request) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, r.URL.Path)
		return
	}
	tenantID := r.PathValue("id")

	svc := api.NewTenantService(handle.Client)
	tenant, err := svc.Get(r.Context(), tenantID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	// Metrics and the user roster are decoration on the detail page. A
	// failure there should not hide the tenant itself.
	metrics, err := svc.Metrics(r.Context(), tenantID)
	if err != nil {
		h.logger().Warn("tenant metrics unavailable", "tenant_id", tenantID, "error", err)
	}
	users, err := svc.ListUsers(r.Context(), tenantID)
	if err != nil {
		h.logger().Warn("tenant users unavailable", "tenant_id", tenantID, "error", err)
	}

	h.Renderer.Render(w, http.StatusOK, "tenant_detail.html", pageData(r, tenant.Name, tenantDetailData{
		Tenant:  tenant,
		Metrics: metrics,
		Users:   users,
	}))
}

// TenantDelete handles POST /platform/tenants/{id}/delete.
func (h *PlatformHandlers) TenantDelete(w http.ResponseWriter, r *http.Request) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, "/platform/tenants")
		return
	}
	tenantID := r.PathValue("id")

	if err := api.NewTenantService(handle.Client).Delete(r.Context(), tenantID); err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.logger().Info("tenant deleted", "tenant_id", tenantID)
	http.Redirect(w, r, "/platform/tenants", http.StatusSeeOther)
}

type auditPageData struct {
	Events []model.AuditEvent
	Total  int
	Params model.AuditListParams
	// Scope labels the listing for the shared audit template.
	Scope string
}

// Audit handles GET /platform/audit.
func (h *PlatformHandlers) Audit(w http.ResponseWriter, r *http.Request) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, "/platform/audit")
		return
	}

	svc, err := api.NewAuditService(api.AuditServiceOptions{
		Client:      handle.Client,
		SummaryExpr: h.AuditSummaryExpr,
		Logger:      h.logger(),
	})
	if err != nil {
		h.logger().Error("build audit service", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := auditParamsFromQuery(r)
	list, err := svc.ListPlatform(r.Context(), params)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "audit.html", pageData(r, "Platform audit log", auditPageData{
		Events: list.Events,
		Total:  list.Total,
		Params: params,
		Scope:  "Platform",
	}))
}

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 200
)

// auditParamsFromQuery parses list filters from the request query. Bad
// values fall back to defaults rather than failing the page.
func auditParamsFromQuery(r *http.Request) model.AuditListParams {
	q := r.URL.Query()
	params := model.AuditListParams{
		Limit:     auditDefaultLimit,
		EventType: strings.TrimSpace(q.Get("event_type")),
		ActorID:   strings.TrimSpace(q.Get("actor_id")),
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		params.Limit = min(v, auditMaxLimit)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		params.Offset = v
	}
	if t, err := time.Parse("2006-01-02", q.Get("start_date")); err == nil {
		params.StartDate = t
	}
	if t, err := time.Parse("2006-01-02", q.Get("end_date")); err == nil {
		params.EndDate = t.Add(24*time.Hour - time.Second)
	}
	return params
}
