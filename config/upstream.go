package config

import (
	"strings"
	"time"
)

// UpstreamConfig contains management API client configuration.
type UpstreamConfig struct {
	// BaseURL is the management API root, e.g. "https://id.example.com/api/v1".
	BaseURL string `env:"BASE_URL,required"`

	// CSRFToken is the anti-forgery token the management API expects on
	// mutating requests.
	CSRFToken string `env:"CSRF_TOKEN" envDefault:""`

	// Timeout bounds each management API request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// AuditSummaryExpr is a JMESPath expression projected over audit event
	// metadata to build the one-line summary shown in audit views.
	AuditSummaryExpr string `env:"AUDIT_SUMMARY_EXPR" envDefault:"join(', ', keys(@))"`
}

// Sanitize applies guardrails to upstream configuration values.
func (u *UpstreamConfig) Sanitize() {
	u.BaseURL = strings.TrimRight(strings.TrimSpace(u.BaseURL), "/")
	if u.Timeout <= 0 {
		u.Timeout = 30 * time.Second
	}
}
