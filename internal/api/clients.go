package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/opentrusty/console/internal/domain/model"
)

// ClientService wraps the management API's OAuth client registration
// endpoints, all scoped to a tenant.
type ClientService struct {
	client *Client
}

// NewClientService constructs a ClientService over the given client.
func NewClientService(client *Client) *ClientService {
	return &ClientService{client: client}
}

func clientPath(tenantID string, parts ...string) string {
	p := fmt.Sprintf("tenants/%s/clients", url.PathEscape(tenantID))
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// List returns the tenant's OAuth clients.
func (s *ClientService) List(ctx context.Context, tenantID string) (*model.ClientList, error) {
	var out model.ClientList
	if err := s.client.Get(ctx, clientPath(tenantID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one OAuth client.
func (s *ClientService) Get(ctx context.Context, tenantID, clientID string) (*model.OAuthClient, error) {
	var out model.OAuthClient
	if err := s.client.Get(ctx, clientPath(tenantID, clientID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create registers a new OAuth client. The client secret in the response is
// only returned once.
func (s *ClientService) Create(ctx context.Context, tenantID string, req *model.CreateClientRequest) (*model.CreateClientResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()
	var out model.CreateClientResponse
	if err := s.client.Post(ctx, clientPath(tenantID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a partial client update.
func (s *ClientService) Update(ctx context.Context, tenantID, clientID string, req *model.UpdateClientRequest) (*model.OAuthClient, error) {
	var out model.OAuthClient
	if err := s.client.Patch(ctx, clientPath(tenantID, clientID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateSecret rotates the client secret and returns the new value,
// which is only returned once.
func (s *ClientService) RegenerateSecret(ctx context.Context, tenantID, clientID string) (*model.ClientSecret, error) {
	var out model.ClientSecret
	if err := s.client.Post(ctx, clientPath(tenantID, clientID, "secret"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an OAuth client registration.
func (s *ClientService) Delete(ctx context.Context, tenantID, clientID string) error {
	return s.client.Delete(ctx, clientPath(tenantID, clientID), nil)
}
