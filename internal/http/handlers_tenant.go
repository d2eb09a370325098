package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/opentrusty/console/internal/api"
	"github.com/opentrusty/console/internal/domain/auth"
	"github.com/opentrusty/console/internal/domain/model"
	apperrors "github.com/opentrusty/console/internal/errors"
	"github.com/opentrusty/console/internal/session"
)

// TenantHandlers serves the tenant-administration region. The tenant scope
// always comes from the session, never from the URL, so a tenant admin can
// only ever operate on their own tenant.
type TenantHandlers struct {
	Renderer *TemplateRenderer
	// AuditSummaryExpr projects audit metadata into list summaries.
	AuditSummaryExpr string
	Logger           *slog.Logger
}

func (h *TenantHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// scope extracts the handle and the session's tenant id. The tenant-admin
// guard runs before these handlers, so a missing tenant here means the
// middleware chain is miswired.
func (h *TenantHandlers) scope(w http.ResponseWriter, r *http.Request) (*session.Handle, string, bool) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, r.URL.Path)
		return nil, "", false
	}
	tenantID := handle.Store.Snapshot().TenantID
	if tenantID == "" {
		h.Renderer.Render(w, http.StatusInternalServerError, "config_error.html",
			pageData(r, "Configuration error", nil))
		return nil, "", false
	}
	return handle, tenantID, true
}

type tenantOverviewData struct {
	TenantName string
	Metrics    *model.TenantMetrics
}

// Overview handles GET /tenant.
func (h *TenantHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	metrics, err := api.NewTenantService(handle.Client).Metrics(r.Context(), tenantID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "tenant_overview.html", pageData(r, "Tenant overview", tenantOverviewData{
		TenantName: handle.Store.Snapshot().TenantName,
		Metrics:    metrics,
	}))
}

type tenantUsersData struct {
	Users []auth.User
	// Provisioned is the user created by the previous request, if any.
	Provisioned *auth.User
	Error       string
}

// Users handles GET /tenant/users.
func (h *TenantHandlers) Users(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, tenantUsersData{})
}

func (h *TenantHandlers) renderUsers(w http.ResponseWriter, r *http.Request, data tenantUsersData) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	users, err := api.NewTenantService(handle.Client).ListUsers(r.Context(), tenantID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}
	data.Users = users

	pd := pageData(r, "Users", data)
	pd.Error = data.Error
	h.Renderer.Render(w, http.StatusOK, "tenant_users.html", pd)
}

// UserProvision handles POST /tenant/users.
func (h *TenantHandlers) UserProvision(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := &model.ProvisionUserRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Nickname: strings.TrimSpace(r.PostFormValue("nickname")),
		RoleName: strings.TrimSpace(r.PostFormValue("role_name")),
	}
	if err := req.Validate(); err != nil {
		h.renderUsers(w, r, tenantUsersData{Error: err.Error()})
		return
	}

	user, err := api.NewTenantService(handle.Client).ProvisionUser(r.Context(), tenantID, req)
	if err != nil {
		if apperrors.IsValidation(err) {
			h.renderUsers(w, r, tenantUsersData{Error: err.Error()})
			return
		}
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.logger().Info("user provisioned", "tenant_id", tenantID, "user_id", user.ID)
	h.renderUsers(w, r, tenantUsersData{Provisioned: user})
}

// UserRoleAssign handles POST /tenant/users/{id}/roles.
func (h *TenantHandlers) UserRoleAssign(w http.ResponseWriter, r *http.Request) {
	h.changeUserRole(w, r, true)
}

// UserRoleRevoke handles POST /tenant/users/{id}/roles/revoke.
func (h *TenantHandlers) UserRoleRevoke(w http.ResponseWriter, r *http.Request) {
	h.changeUserRole(w, r, false)
}

func (h *TenantHandlers) changeUserRole(w http.ResponseWriter, r *http.Request, assign bool) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	userID := r.PathValue("id")
	role := strings.TrimSpace(r.PostFormValue("role_name"))
	if role == "" {
		h.renderUsers(w, r, tenantUsersData{Error: "Role name is required."})
		return
	}

	svc := api.NewTenantService(handle.Client)
	var err error
	if assign {
		err = svc.AssignRole(r.Context(), tenantID, userID, role)
	} else {
		err = svc.RevokeRole(r.Context(), tenantID, userID, role)
	}
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	http.Redirect(w, r, "/tenant/users", http.StatusSeeOther)
}

// UserNickname handles POST /tenant/users/{id}/nickname.
func (h *TenantHandlers) UserNickname(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	userID := r.PathValue("id")
	nickname := strings.TrimSpace(r.PostFormValue("nickname"))

	if err := api.NewTenantService(handle.Client).UpdateUserNickname(r.Context(), tenantID, userID, nickname); err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	http.Redirect(w, r, "/tenant/users", http.StatusSeeOther)
}

type tenantClientsData struct {
	Clients []model.OAuthClient
	Total   int
	// Created carries the one-time client secret of a registration made by
	// the previous request. Shown once, never persisted.
	Created *model.CreateClientResponse
	Error   string
}

// Clients handles GET /tenant/clients.
func (h *TenantHandlers) Clients(w http.ResponseWriter, r *http.Request) {
	h.renderClients(w, r, tenantClientsData{})
}

func (h *TenantHandlers) renderClients(w http.ResponseWriter, r *http.Request, data tenantClientsData) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	list, err := api.NewClientService(handle.Client).List(r.Context(), tenantID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}
	data.Clients = list.Clients
	data.Total = list.Total

	pd := pageData(r, "OAuth clients", data)
	pd.Error = data.Error
	h.Renderer.Render(w, http.StatusOK, "tenant_clients.html", pd)
}

// ClientCreate handles POST /tenant/clients.
func (h *TenantHandlers) ClientCreate(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := &model.CreateClientRequest{
		ClientName:              strings.TrimSpace(r.PostFormValue("client_name")),
		RedirectURIs:            splitLines(r.PostFormValue("redirect_uris")),
		AllowedScopes:           strings.Fields(r.PostFormValue("allowed_scopes")),
		GrantTypes:              strings.Fields(r.PostFormValue("grant_types")),
		ResponseTypes:           strings.Fields(r.PostFormValue("response_types")),
		TokenEndpointAuthMethod: strings.TrimSpace(r.PostFormValue("token_endpoint_auth_method")),
	}
	if err := req.Validate(); err != nil {
		h.renderClients(w, r, tenantClientsData{Error: err.Error()})
		return
	}

	created, err := api.NewClientService(handle.Client).Create(r.Context(), tenantID, req)
	if err != nil {
		if apperrors.IsValidation(err) {
			h.renderClients(w, r, tenantClientsData{Error: err.Error()})
			return
		}
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.logger().Info("oauth client registered", "tenant_id", tenantID, "client_id", created.Client.ClientID)
	h.renderClients(w, r, tenantClientsData{Created: created})
}

type clientDetailData struct {
	Client *model.OAuthClient
	// Secret is a freshly regenerated secret, shown once.
	Secret string
}

// ClientDetail handles GET /tenant/clients/{id}.
func (h *TenantHandlers) ClientDetail(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	clientID := r.PathValue("id")

	client, err := api.NewClientService(handle.Client).Get(r.Context(), tenantID, clientID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "tenant_client_detail.html", pageData(r, client.ClientName, clientDetailData{
		Client: client,
	}))
}

// ClientUpdate handles POST /tenant/clients/{id}.
func (h *TenantHandlers) ClientUpdate(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	clientID := r.PathValue("id")

	req := &model.UpdateClientRequest{
		ClientName:    strings.TrimSpace(r.PostFormValue("client_name")),
		RedirectURIs:  splitLines(r.PostFormValue("redirect_uris")),
		AllowedScopes: strings.Fields(r.PostFormValue("allowed_scopes")),
	}
	if _, err := api.NewClientService(handle.Client).Update(r.Context(), tenantID, clientID, req); err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	http.Redirect(w, r, "/tenant/clients/"+clientID, http.StatusSeeOther)
}

// ClientRegenerateSecret handles POST /tenant/clients/{id}/secret.
func (h *TenantHandlers) ClientRegenerateSecret(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	clientID := r.PathValue("id")

	svc := api.NewClientService(handle.Client)
	secret, err := svc.RegenerateSecret(r.Context(), tenantID, clientID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}
	client, err := svc.Get(r.Context(), tenantID, clientID)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.logger().Info("client secret regenerated", "tenant_id", tenantID, "client_id", clientID)
	h.Renderer.Render(w, http.StatusOK, "tenant_client_detail.html", pageData(r, client.ClientName, clientDetailData{
		Client: client,
		Secret: secret.ClientSecret,
	}))
}

// ClientDelete handles POST /tenant/clients/{id}/delete.
func (h *TenantHandlers) ClientDelete(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	clientID := r.PathValue("id")

	if err := api.NewClientService(handle.Client).Delete(r.Context(), tenantID, clientID); err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.logger().Info("oauth client deleted", "tenant_id", tenantID, "client_id", clientID)
	http.Redirect(w, r, "/tenant/clients", http.StatusSeeOther)
}

// Audit handles GET /tenant/audit.
func (h *TenantHandlers) Audit(w http.ResponseWriter, r *http.Request) {
	handle, tenantID, ok := h.scope(w, r)
	if !ok {
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
	list, err := svc.ListTenant(r.Context(), tenantID, params)
	if err != nil {
		h.Renderer.RenderUpstreamError(w, r, err)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "audit.html", pageData(r, "Tenant audit log", auditPageData{
		Events: list.Events,
		Total:  list.Total,
		Params: params,
		Scope:  "Tenant",
	}))
}

// splitLines splits a textarea value into trimmed, non-empty lines.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			out = append(out, v)
		}
	}
	return out
}
