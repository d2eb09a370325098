package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/opentrusty/console/internal/errors"
)

// AuditEvent is one immutable audit record from the management API.
type AuditEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	TenantID   string         `json:"tenant_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	ActorName  string         `json:"actor_name,omitempty"`
	Resource   string         `json:"resource"`
	TargetID   string         `json:"target_id,omitempty"`
	TargetName string         `json:"target_name,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	// Summary is a console-side projection of Metadata for list views.
	// It is never sent to or received from the management API.
	Summary string `json:"-"`
}

// AuditListParams filters and pages an audit event listing.
type AuditListParams struct {
	Limit     int
	Offset    int
	EventType string
	ActorID   string
	StartDate time.Time
	EndDate   time.Time
}

// Query encodes the parameters as a URL query string.
func (p AuditListParams) Query() string {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.EventType != "" {
		q.Set("event_type", p.EventType)
	}
	if p.ActorID != "" {
		q.Set("actor_id", p.ActorID)
	}
	if !p.StartDate.IsZero() {
		q.Set("start_date", p.StartDate.UTC().Format(time.RFC3339))
	}
	if !p.EndDate.IsZero() {
		q.Set("end_date", p.EndDate.UTC().Format(time.RFC3339))
	}
	return q.Encode()
}

// AuditEventList is a paged audit listing.
type AuditEventList struct {
	Events []AuditEvent `json:"events"`
	Total  int          `json:"total"`
}

// AuditQueryRequest declares a historical audit query. Declarations are
// recorded by the platform so bulk access to audit data is itself audited.
type AuditQueryRequest struct {
	TenantID  string    `json:"tenant_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

// Validate checks the declaration before submission.
func (r *AuditQueryRequest) Validate() error {
	if r.TenantID == "" {
		return apperrors.Validation("audit query requires a tenant id")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return apperrors.Validation("audit query requires a reason")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return apperrors.Validation("audit query requires a start and end date")
	}
	if r.EndDate.Before(r.StartDate) {
		return apperrors.Validation("audit query end date precedes start date")
	}
	return nil
}

// AuditQueryRef identifies a declared audit query.
type AuditQueryRef struct {
	ID string `json:"id"`
}
