package staffdex

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
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	basePath       = "/api/v1/search"
)

// Sentinel errors matched against the server's error codes.
// Use errors.Is() to check.
var (
	ErrInvalidQuery = errors.New("staffdex: invalid query")
	ErrUnauthorized = errors.New("staffdex: unauthorized")
	ErrForbidden    = errors.New("staffdex: forbidden")
	ErrRateLimited  = errors.New("staffdex: rate limited")
	ErrUnavailable  = errors.New("staffdex: service unavailable")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("staffdex: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the wire error code onto a package sentinel so callers
// can use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation_failed":
		return ErrInvalidQuery
	case "unauthorized":
		return ErrUnauthorized
	case "forbidden":
		return ErrForbidden
	case "rate_limited":
		return ErrRateLimited
	case "search_failed":
		return ErrUnavailable
	}
	if e.StatusCode == http.StatusServiceUnavailable {
		return ErrUnavailable
	}
	return nil
}

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// WithHTTPClient sets a custom HTTP client. Useful for proxies,
// custom TLS configuration, or instrumented transports.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request timeout. Default: 10s.
// Ignored when WithHTTPClient is also provided.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// Client is the staffdex API client. It is safe for concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	httpc     *http.Client
}

// New creates a Client for the staffdex instance at baseURL,
// authenticating with the given tenant API key.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("staffdex: base URL required")
	}
	if apiKey == "" {
		return nil, errors.New("staffdex: API key required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("staffdex: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("staffdex: invalid base URL scheme %q", u.Scheme)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: cfg.userAgent,
		httpc:     hc,
	}, nil
}

// do issues a request and decodes the JSON response into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("staffdex: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("staffdex: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("staffdex: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("staffdex: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &envelope) == nil && envelope.Code != "" {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
	} else {
		apiErr.Code = "internal_error"
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
