// Package model contains the management-API resource models the console
// renders and mutates: tenants, users within tenants, OAuth clients, audit
// records, and platform metrics. The wire format is owned by the management
// API; these types validate what the console depends on.
package model

import (
	"strings"
	"time"

	apperrors "github.com/opentrusty/console/internal/errors"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

// Tenant is one tenant of the identity platform.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// TenantMetrics summarizes a single tenant for its overview page.
type TenantMetrics struct {
	TotalUsers    int `json:"total_users"`
	TotalClients  int `json:"total_clients"`
	AuditCount24h int `json:"audit_count_24h"`
}

// CreateTenantRequest creates a new tenant, optionally provisioning an
// initial admin user.
type CreateTenantRequest struct {
	Name       string `json:"name"`
	AdminEmail string `json:"admin_email,omitempty"`
	AdminName  string `json:"admin_name,omitempty"`
}

// Validate checks required fields before the request leaves the console.
func (r *CreateTenantRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.Validation("tenant name is required")
	}
	return nil
}

// Normalize trims user-entered fields.
func (r *CreateTenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.AdminEmail = strings.TrimSpace(r.AdminEmail)
	r.AdminName = strings.TrimSpace(r.AdminName)
}

// AdminCredentials are one-time initial admin credentials the backend may
// issue when creating a tenant. They are never retrievable again.
type AdminCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Warning  string `json:"warning"`
}

// CreateTenantResponse is the creation result, possibly carrying one-time
// admin credentials.
type CreateTenantResponse struct {
	Tenant
	AdminCredentials *AdminCredentials `json:"admin_credentials,omitempty"`
}

// UpdateTenantRequest carries a partial tenant update.
type UpdateTenantRequest struct {
	Name   string       `json:"name,omitempty"`
	Status TenantStatus `json:"status,omitempty"`
}

// Validate rejects an empty update and unknown statuses.
func (r *UpdateTenantRequest) Validate() error {
	if r.Name == "" && r.Status == "" {
		return apperrors.Validation("tenant update must change at least one field")
	}
	switch r.Status {
	case "", TenantStatusActive, TenantStatusSuspended, TenantStatusDeleted:
		return nil
	default:
		return apperrors.Validationf("unknown tenant status %q", r.Status)
	}
}

// ProvisionUserRequest provisions a user inside a tenant.
type ProvisionUserRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname,omitempty"`
	RoleName string `json:"role_name,omitempty"`
}

// Validate checks required fields.
func (r *ProvisionUserRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.Validation("user email is required")
	}
	return nil
}
