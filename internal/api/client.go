package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix is the API path prefix appended to the configured origin.
const DefaultPrefix = "/api/v1"

// EmptyResponse is the decode target for endpoints whose body is ignored.
// It is the only type that accepts an empty body.
type EmptyResponse struct{}

// Client is the single point of outbound HTTP to the backend.
// It owns the process-wide bearer token; the zero value is not usable.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Client for the given origin, e.g. "https://ci.example.com".
// prefix is appended to origin; pass empty for DefaultPrefix.
func NewClient(origin string, prefix string, opts ...Option) (*Client, error) {
	if origin == "" {
		return nil, fmt.Errorf("api origin is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	base, err := url.JoinPath(origin, prefix)
	if err != nil {
		return nil, fmt.Errorf("building base URL: %w", err)
	}
	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns origin plus prefix.
func (c *Client) BaseURL() string { return c.baseURL }

// SetAuthToken sets the bearer token attached to every subsequent request.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearAuthToken removes the bearer token.
func (c *Client) ClearAuthToken() {
	c.SetAuthToken("")
}

// HasAuthToken reports whether a bearer token is set.
func (c *Client) HasAuthToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Request performs a call and decodes the response body as T.
func Request[T any](ctx context.Context, c *Client, method, endpoint string, body any) (T, error) {
	var out T
	if err := c.Do(ctx, method, endpoint, body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Do performs exactly one call. body is JSON-encoded when non-nil; out receives
// the decoded response and may be nil to discard it.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

// PostForm sends a form-encoded POST. The response is classified exactly as Do does.
func (c *Client) PostForm(ctx context.Context, endpoint string, values url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	apiURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 0 {
		return ErrInvalidResponse
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrInvalidResponse, err)
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if _, ok := out.(*EmptyResponse); ok {
			return nil
		}
		return &DecodingError{Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodingError{Err: err}
	}
	return nil
}
