package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: login mode and OIDC settings
//   - http.go: console HTTP server settings
//   - redis.go: Redis connection settings
//   - session.go: console session lifetime settings
//   - upstream.go: management API client settings
type AppConfig struct {
	// IsDev controls development mode behavior (relaxed cookies, verbose
	// logging). Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Management API client configuration
	Upstream UpstreamConfig `envPrefix:"UPSTREAM_"`

	// Redis configuration (console session persistence)
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Authentication configuration
	Auth AuthConfig

	// Console session configuration
	Session SessionConfig `envPrefix:"SESSION_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Upstream.Sanitize()
	c.Session.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
