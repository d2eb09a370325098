package config

import "time"

// SessionConfig contains console session lifetime configuration.
type SessionConfig struct {
	// CookieName is the console's own session cookie.
	CookieName string `env:"COOKIE_NAME" envDefault:"console_session"`

	// TTL is the console session lifetime, extended on activity.
	TTL time.Duration `env:"TTL" envDefault:"12h"`

	// Refresh bounds how stale a committed session check may be before a
	// guarded request re-checks against the management API.
	Refresh time.Duration `env:"REFRESH" envDefault:"30s"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.CookieName == "" {
		s.CookieName = "console_session"
	}
	if s.TTL <= 0 {
		s.TTL = 12 * time.Hour
	}
	if s.Refresh <= 0 {
		s.Refresh = 30 * time.Second
	}
}
