// Package oidc implements the console's OIDC login mode. Instead of posting
// credentials to the management API, the operator authenticates against the
// platform's own OIDC issuer and the console uses the resulting access token
// as a bearer credential on management API requests.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Config holds configuration for the OIDC provider.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	// RedirectURL is the console's callback, e.g. https://console.example.com/auth/callback.
	RedirectURL string
	// Scopes is a space-separated scope list. "openid" is required.
	Scopes string
	// HTTPClient overrides the discovery and token-exchange transport.
	HTTPClient *http.Client
}

// Provider drives the authorization-code flow against the platform issuer.
type Provider struct {
	oauth    *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// NewProvider performs OIDC discovery and builds a Provider.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	scopes := strings.Fields(cfg.Scopes)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}
	hasOpenID := false
	for _, sc := range scopes {
		if sc == gooidc.ScopeOpenID {
			hasOpenID = true
		}
	}
	if !hasOpenID {
		return nil, errors.New(`scopes must include "openid"`)
	}

	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	provider, err := gooidc.NewProvider(ctx, strings.TrimSuffix(cfg.IssuerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// BeginResult carries what the login handler needs to start the flow: the
// issuer URL to redirect to, plus the state and nonce it must stash until
// the callback.
type BeginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// Begin generates state and nonce and builds the authorization URL.
func (p *Provider) Begin() (BeginResult, error) {
	state, err := randomToken(32)
	if err != nil {
		return BeginResult{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return BeginResult{}, fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.oauth.AuthCodeURL(state, gooidc.Nonce(nonce))
	return BeginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// Credential is the outcome of a completed flow: the bearer token the console
// attaches to management API requests plus basic identity for display before
// the first session check lands.
type Credential struct {
	Bearer    string
	ExpiresAt time.Time
	Subject   string
	Email     string
	// Claims is the full verified id_token claim set, for role projection.
	Claims map[string]any
}

type idClaims struct {
	Nonce string `json:"nonce"`
	Email string `json:"email"`
}

// Exchange completes the flow: swaps the authorization code for tokens and
// verifies the id_token, including the nonce. The caller has already matched
// the state parameter against its stashed value.
func (p *Provider) Exchange(ctx context.Context, code, nonce string) (Credential, error) {
	if code == "" {
		return Credential{}, errors.New("authorization code is required")
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Credential{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return Credential{}, errors.New("token response missing id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return Credential{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return Credential{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if nonce != "" && claims.Nonce != nonce {
		return Credential{}, errors.New("id_token nonce mismatch")
	}
	var rawClaims map[string]any
	if err := idToken.Claims(&rawClaims); err != nil {
		return Credential{}, fmt.Errorf("parse id_token claims: %w", err)
	}

	expiresAt := idToken.Expiry
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}

	return Credential{
		Bearer:    token.AccessToken,
		ExpiresAt: expiresAt,
		Subject:   idToken.Subject,
		Email:     claims.Email,
		Claims:    rawClaims,
	}, nil
}

// randomToken returns a URL-safe random string of n characters.
func randomToken(n int) (string, error) {
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) > n {
		s = s[:n]
	}
	return s, nil
}
