package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the console's login mode.
type AuthMode string

const (
	// AuthModePassword posts operator credentials to the management API and
	// carries its session cookie.
	AuthModePassword AuthMode = "password"
	// AuthModeOIDC runs an authorization-code flow against the platform
	// issuer and carries a bearer token.
	AuthModeOIDC AuthMode = "oidc"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "password", "oidc":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, oidc)", v)
	}
}

// OIDCConfig contains settings for the OIDC login mode.
type OIDCConfig struct {
	IssuerURL    string `env:"ISSUER_URL"`
	ClientID     string `env:"CLIENT_ID"     envDefault:"console"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scopes       string `env:"SCOPES"        envDefault:"openid profile email"`

	// RoleClaimsExpr is a JMESPath expression mapping id_token claims to a
	// role-assignment list when the issuer embeds console roles in claims.
	RoleClaimsExpr string `env:"ROLE_CLAIMS_EXPR" envDefault:""`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which login flow the console offers.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`
}

// Validate rejects inconsistent auth configuration.
func (a *AuthConfig) Validate() error {
	if a.Mode == AuthModeOIDC && a.OIDC.IssuerURL == "" {
		return fmt.Errorf("AUTH_MODE=oidc requires OIDC_ISSUER_URL")
	}
	return nil
}
