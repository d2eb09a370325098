package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/opentrusty/console/internal/domain/auth"
	"github.com/opentrusty/console/internal/domain/model"
)

// TenantService wraps the management API's tenant and tenant-user endpoints.
type TenantService struct {
	client *Client
}

// NewTenantService constructs a TenantService over the given client.
func NewTenantService(client *Client) *TenantService {
	return &TenantService{client: client}
}

// List returns all tenants. Platform admin only.
func (s *TenantService) List(ctx context.Context) ([]model.Tenant, error) {
	var out []model.Tenant
	if err := s.client.Get(ctx, "tenants", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one tenant by id.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var out model.Tenant
	if err := s.client.Get(ctx, "tenants/"+url.PathEscape(tenantID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create creates a tenant. Platform admin only. One-time admin credentials,
// when issued, are only present in this response.
func (s *TenantService) Create(ctx context.Context, req *model.CreateTenantRequest) (*model.CreateTenantResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()
	var out model.CreateTenantResponse
	if err := s.client.Post(ctx, "tenants", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a partial tenant update.
func (s *TenantService) Update(ctx context.Context, tenantID string, req *model.UpdateTenantRequest) (*model.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out model.Tenant
	if err := s.client.Patch(ctx, "tenants/"+url.PathEscape(tenantID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a tenant. Platform admin only.
func (s *TenantService) Delete(ctx context.Context, tenantID string) error {
	return s.client.Delete(ctx, "tenants/"+url.PathEscape(tenantID), nil)
}

// ListUsers returns the users in a tenant.
func (s *TenantService) ListUsers(ctx context.Context, tenantID string) ([]auth.User, error) {
	var out []auth.User
	if err := s.client.Get(ctx, fmt.Sprintf("tenants/%s/users", url.PathEscape(tenantID)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProvisionUser creates a user inside a tenant.
func (s *TenantService) ProvisionUser(ctx context.Context, tenantID string, req *model.ProvisionUserRequest) (*auth.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out auth.User
	if err := s.client.Post(ctx, fmt.Sprintf("tenants/%s/users", url.PathEscape(tenantID)), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics returns the tenant's dashboard counters.
func (s *TenantService) Metrics(ctx context.Context, tenantID string) (*model.TenantMetrics, error) {
	var out model.TenantMetrics
	if err := s.client.Get(ctx, fmt.Sprintf("tenants/%s/metrics", url.PathEscape(tenantID)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

// AssignRole grants a role to a user within a tenant.
func (s *TenantService) AssignRole(ctx context.Context, tenantID, userID, role string) error {
	path := fmt.Sprintf("tenants/%s/users/%s/roles", url.PathEscape(tenantID), url.PathEscape(userID))
	return s.client.Post(ctx, path, assignRoleRequest{Role: role}, nil)
}

// RevokeRole removes a role from a user within a tenant.
func (s *TenantService) RevokeRole(ctx context.Context, tenantID, userID, role string) error {
	path := fmt.Sprintf("tenants/%s/users/%s/roles/%s",
		url.PathEscape(tenantID), url.PathEscape(userID), url.PathEscape(role))
	return s.client.Delete(ctx, path, nil)
}

type updateNicknameRequest struct {
	Nickname string `json:"nickname"`
}

// UpdateUserNickname updates a user's display nickname.
func (s *TenantService) UpdateUserNickname(ctx context.Context, tenantID, userID, nickname string) error {
	path := fmt.Sprintf("tenants/%s/users/%s", url.PathEscape(tenantID), url.PathEscape(userID))
	return s.client.Patch(ctx, path, updateNicknameRequest{Nickname: nickname}, nil)
}
