package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/opentrusty/console/internal/errors"
)

func TestCreateTenantRequest_Validate(t *testing.T) {
	req := &CreateTenantRequest{Name: "  Acme  ", AdminEmail: " admin@acme.io "}
	req.Normalize()

	assert.NoError(t, req.Validate())
	assert.Equal(t, "Acme", req.Name)
	assert.Equal(t, "admin@acme.io", req.AdminEmail)

	empty := &CreateTenantRequest{Name: "   "}
	assert.True(t, apperrors.IsValidation(empty.Validate()))
}

func TestUpdateTenantRequest_Validate(t *testing.T) {
	assert.True(t, apperrors.IsValidation((&UpdateTenantRequest{}).Validate()))
	assert.True(t, apperrors.IsValidation((&UpdateTenantRequest{Status: "archived"}).Validate()))
	assert.NoError(t, (&UpdateTenantRequest{Status: TenantStatusSuspended}).Validate())
	assert.NoError(t, (&UpdateTenantRequest{Name: "New Name"}).Validate())
}

func TestProvisionUserRequest_Validate(t *testing.T) {
	assert.True(t, apperrors.IsValidation((&ProvisionUserRequest{}).Validate()))
	assert.NoError(t, (&ProvisionUserRequest{Email: "u@acme.io", RoleName: "tenant_admin"}).Validate())
}

func TestCreateClientRequest_Validate(t *testing.T) {
	req := &CreateClientRequest{
		ClientName:   "Dashboard",
		RedirectURIs: []string{"https://app.acme.io/callback"},
	}
	assert.NoError(t, req.Validate())

	assert.True(t, apperrors.IsValidation((&CreateClientRequest{RedirectURIs: []string{"https://x"}}).Validate()))
	assert.True(t, apperrors.IsValidation((&CreateClientRequest{ClientName: "x"}).Validate()))

	relative := &CreateClientRequest{ClientName: "x", RedirectURIs: []string{"/callback"}}
	assert.True(t, apperrors.IsValidation(relative.Validate()))
}

func TestAuditListParams_Query(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := AuditListParams{
		Limit:     50,
		Offset:    100,
		EventType: "user.login",
		StartDate: start,
	}

	q := p.Query()
	assert.Contains(t, q, "limit=50")
	assert.Contains(t, q, "offset=100")
	assert.Contains(t, q, "event_type=user.login")
	assert.Contains(t, q, "start_date=2026-01-02T03%3A04%3A05Z")

	assert.Empty(t, AuditListParams{}.Query())
}

func TestAuditQueryRequest_Validate(t *testing.T) {
	now := time.Now()
	valid := &AuditQueryRequest{
		TenantID:  "t1",
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now,
		Reason:    "quarterly access review",
	}
	assert.NoError(t, valid.Validate())

	inverted := *valid
	inverted.StartDate, inverted.EndDate = inverted.EndDate, inverted.StartDate
	assert.True(t, apperrors.IsValidation(inverted.Validate()))

	noReason := *valid
	noReason.Reason = "  "
	assert.True(t, apperrors.IsValidation(noReason.Validate()))

	noTenant := *valid
	noTenant.TenantID = ""
	assert.True(t, apperrors.IsValidation(noTenant.Validate()))
}
