package api

import (
	"context"
	"fmt"

	"github.com/opentrusty/console/internal/domain/auth"
)

// AuthService wraps the management API's authentication endpoints.
type AuthService struct {
	client *Client
}

// NewAuthService constructs an AuthService over the given client.
func NewAuthService(client *Client) *AuthService {
	return &AuthService{client: client}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login submits credentials. The response carries minimal data; identity and
// role state comes from a follow-up Me call. No tenant header is sent, the
// tenant is derived server-side from the user record.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	var out auth.LoginResult
	if err := s.client.Post(ctx, "auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the current session's identity, role assignments, and tenant
// context. Malformed payloads are rejected here so undefined shapes never
// reach session state.
func (s *AuthService) Me(ctx context.Context) (*auth.CurrentSession, error) {
	var out auth.CurrentSession
	if err := s.client.Get(ctx, "auth/me", &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("session check payload: %w", err)
	}
	return &out, nil
}

// Logout terminates the upstream session.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.Post(ctx, "auth/logout", nil, nil)
}
