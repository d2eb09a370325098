package config

import "strings"

// HTTPConfig contains console HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the console (e.g., "https://console.example.com").
	// Post-login redirect targets are validated against it.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for the console session cookie.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks the console session cookie Secure. Disabled
	// automatically in dev mode by Sanitize when BaseURL is plain http.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"true"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	if strings.HasPrefix(h.BaseURL, "http://") {
		h.CookieSecure = false
	}
}
