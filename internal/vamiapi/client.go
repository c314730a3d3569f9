// Package vamiapi is the HTTP client for the Vami REST backend.
package vamiapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000/api"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// TokenSource yields the bearer token for a request. An empty token sends the
// request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// UnauthorizedFunc runs once for every 401 response, whichever call received it.
type UnauthorizedFunc func(ctx context.Context)

// Client issues requests against the backend.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on a fresh HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler sets the global 401 hook.
func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// With returns a copy of the client sharing its transport, with opts applied.
// Used to derive a per-session client with its own token source and 401 hook.
func (c *Client) With(opts ...Option) *Client {
	clone := *c
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends a request and decodes a 2xx JSON response into out (when non-nil).
// Non-2xx responses and transport failures are returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, body any, params url.Values, out any) error {
	req, err := c.newRequest(ctx, method, path, body, params)
	if err != nil {
		return &Error{Kind: KindTransient, Method: method, Path: path, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Backend request failed", "method", method, "path", path, "error", err)
		return &Error{Kind: KindTransient, Method: method, Path: path, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close response body", "path", path, "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Info("Backend rejected credentials", "method", method, "path", path)
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail, code := parseErrorBody(raw)
		return &Error{
			Kind:   classify(resp.StatusCode, detail, code),
			Status: resp.StatusCode,
			Detail: detail,
			Code:   code,
			Method: method,
			Path:   path,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Kind: KindTransient, Status: resp.StatusCode, Method: method, Path: path,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, params url.Values) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, params, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, nil, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, nil, out)
}
