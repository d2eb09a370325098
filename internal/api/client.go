// Package api is the console's HTTP adapter to the management API. It owns
// credential attachment, content negotiation, and the mapping of upstream
// responses into the console's error taxonomy. Typed resource services
// (auth, tenants, clients, audit, platform) are thin shims over Client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/opentrusty/console/internal/domain/auth"
	apperrors "github.com/opentrusty/console/internal/errors"
)

// CSRFHeader is the anti-forgery token header attached to mutating requests.
const CSRFHeader = "X-CSRF-Token"

const defaultTimeout = 30 * time.Second

// Config holds configuration for the management API client.
type Config struct {
	// BaseURL is the management API root, e.g. "https://id.example.com/api/v1".
	BaseURL string
	// CSRFToken is the anti-forgery token value sent on mutating requests.
	CSRFToken string
	// Timeout bounds each request. Zero means the 30s default.
	Timeout time.Duration
	// HTTPClient overrides the underlying transport (tests). When set, its
	// cookie jar is used as-is.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues requests against the management API. Each browser session
// gets its own Client so the upstream credential (session cookie or bearer
// token) never leaks across console users.
//
// The client does not retry failed requests; retry policy belongs to callers.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	csrfToken string
	logger    *slog.Logger

	mu             sync.Mutex
	bearer         string
	onUnauthorized []func()
}

// NewClient creates a management API client with a publicsuffix-aware cookie
// jar so the upstream session cookie is carried automatically.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}
	// Relative request paths resolve against the base; without a trailing
	// slash the last base segment would be dropped.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("create cookie jar: %w", jarErr)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Jar: jar, Timeout: timeout}
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		csrfToken: cfg.CSRFToken,
		logger:    logger,
	}, nil
}

// OnUnauthorized registers a callback invoked whenever any request receives a
// credential-expiry response. Registration is append-only and expected at
// startup; there is no way to replace or remove a callback.
func (c *Client) OnUnauthorized(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// SetBearer switches the client to bearer-token credentials (OIDC login
// mode). An empty token reverts to cookie credentials.
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = token
}

// Bearer returns the current bearer token, if any.
func (c *Client) Bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearer
}

// Cookies snapshots the upstream credential cookies for persistence.
func (c *Client) Cookies() []auth.CredentialCookie {
	if c.http.Jar == nil {
		return nil
	}
	var out []auth.CredentialCookie
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		out = append(out, auth.CredentialCookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// RestoreCookies loads previously persisted credential cookies into the jar.
func (c *Client) RestoreCookies(cookies []auth.CredentialCookie) {
	if c.http.Jar == nil || len(cookies) == 0 {
		return
	}
	restored := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		restored = append(restored, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	c.http.Jar.SetCookies(c.baseURL, restored)
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH request with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "parse request path %q", path)
	}
	target := c.baseURL.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		encoded, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return apperrors.Wrap(marshalErr, apperrors.ErrCodeInternal, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if mutating(method) && c.csrfToken != "" {
		req.Header.Set(CSRFHeader, c.csrfToken)
	}
	if bearer := c.Bearer(); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "%s %s", method, ref.Path)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body failed", "error", cerr)
		}
	}()

	return c.interpret(resp, out)
}

// interpret maps an upstream response to a result or a taxonomy error.
func (c *Client) interpret(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.notifyUnauthorized()
		return apperrors.Unauthorized()

	case resp.StatusCode == http.StatusForbidden:
		errBody := decodeErrorBody(resp.Body)
		return apperrors.Forbidden(errorMessage(errBody))

	case resp.StatusCode == http.StatusNoContent:
		return nil

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		errBody := decodeErrorBody(resp.Body)
		msg := errorMessage(errBody)
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return apperrors.Upstream(apperrors.UpstreamParams{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Message:    msg,
			Body:       errBody,
		})

	default:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode response body")
		}
		return nil
	}
}

func (c *Client) notifyUnauthorized() {
	c.mu.Lock()
	observers := make([]func(), len(c.onUnauthorized))
	copy(observers, c.onUnauthorized)
	c.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// decodeErrorBody parses an error response body best-effort. A body that is
// missing or not a JSON object yields nil.
func decodeErrorBody(r io.Reader) map[string]any {
	var body map[string]any
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil
	}
	return body
}

// errorMessage extracts the server's message from a parsed error body,
// preferring "error" over "message".
func errorMessage(body map[string]any) string {
	for _, key := range []string{"error", "message"} {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
