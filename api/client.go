// ABOUTME: HTTP client for the pipeline REST API
// ABOUTME: Attaches the session token, maps 401/404 to sentinel errors and never retries
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Session supplies the stored API token and forgets it on logout.
type Session interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

type staticSession struct{ token string }

func (s *staticSession) Token(context.Context) (string, error) { return s.token, nil }

func (s *staticSession) ClearToken(context.Context) error {
	s.token = ""
	return nil
}

// Client talks to the /api/ routes.
type Client struct {
	base           *url.URL
	http           *http.Client
	session        Session
	onUnauthorized func()
	logger         *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client (which has no timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken uses a fixed token instead of a stored session.
func WithToken(token string) Option {
	return func(c *Client) { c.session = &staticSession{token: token} }
}

func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

// WithUnauthorizedHandler is called after the session is cleared on a 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client for baseURL, e.g. "http://localhost:8080/api/".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url: %q", baseURL)
	}

	c := &Client{
		base:    base,
		http:    &http.Client{},
		session: &staticSession{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	u := c.base.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.session.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.logout(ctx)
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decodeBody(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// decodeBody accepts both bare JSON and paginated {"results": [...]} list envelopes.
func decodeBody(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err == nil && len(page.Results) > 0 && page.Results[0] == '[' {
			return json.Unmarshal(page.Results, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

func (c *Client) logout(ctx context.Context) {
	c.logger.Warn("API rejected credentials, clearing session")
	if err := c.session.ClearToken(ctx); err != nil {
		c.logger.Error("Failed to clear session", zap.Error(err))
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func itemPath(collection, id string) string {
	return collection + "/" + url.PathEscape(id) + "/"
}
