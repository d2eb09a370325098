package model

import (
	"net/url"
	"strings"
	"time"

	apperrors "github.com/opentrusty/console/internal/errors"
)

// ClientType classifies an OAuth client registration.
type ClientType string

const (
	ClientTypeWebApplication ClientType = "web_application"
	ClientTypeSPA            ClientType = "spa"
	ClientTypeBackendService ClientType = "backend_service"
)

// OAuthClient is one OAuth client registration within a tenant.
type OAuthClient struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	ClientName   string     `json:"client_name"`
	ClientType   ClientType `json:"client_type"`
	RedirectURIs []string   `json:"redirect_uris"`
	Scopes       []string   `json:"scopes"`
	TenantID     string     `json:"tenant_id"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateClientRequest registers a new OAuth client.
type CreateClientRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	AllowedScopes           []string `json:"allowed_scopes"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// Validate checks the fields the console can verify before submission.
// The management API performs the authoritative validation.
func (r *CreateClientRequest) Validate() error {
	if strings.TrimSpace(r.ClientName) == "" {
		return apperrors.Validation("client name is required")
	}
	if len(r.RedirectURIs) == 0 {
		return apperrors.Validation("at least one redirect URI is required")
	}
	for _, raw := range r.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return apperrors.Validationf("redirect URI %q is not an absolute URL", raw)
		}
	}
	return nil
}

// Normalize trims user-entered fields.
func (r *CreateClientRequest) Normalize() {
	r.ClientName = strings.TrimSpace(r.ClientName)
	for i := range r.RedirectURIs {
		r.RedirectURIs[i] = strings.TrimSpace(r.RedirectURIs[i])
	}
}

// CreateClientResponse carries the new registration and the client secret,
// which is only returned once.
type CreateClientResponse struct {
	Client       OAuthClient `json:"client"`
	ClientSecret string      `json:"client_secret"`
}

// UpdateClientRequest carries a partial client update.
type UpdateClientRequest struct {
	ClientName    string   `json:"client_name,omitempty"`
	RedirectURIs  []string `json:"redirect_uris,omitempty"`
	AllowedScopes []string `json:"allowed_scopes,omitempty"`
}

// ClientSecret is the result of regenerating a client secret.
type ClientSecret struct {
	ClientSecret string `json:"client_secret"`
}

// ClientList is a paged list of OAuth clients.
type ClientList struct {
	Clients []OAuthClient `json:"clients"`
	Total   int           `json:"total"`
}
