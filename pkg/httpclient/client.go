package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/richxcame/geoippro/pkg/resilience"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a small JSON/form HTTP client with optional retries.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig *resilience.RetryConfig
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a client for baseURL. The optional timeout defaults to 30s.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	t := 30 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: t},
	}
}

// With applies options and returns the client.
func (c *Client) With(opts ...Option) *Client {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRetry enables retries using cfg. Only transport errors, 5xx and 429 are retried
// unless cfg sets its own checker.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		if cfg.RetryableChecker == nil && len(cfg.RetryableErrors) == 0 {
			cfg.RetryableChecker = isHTTPRetryable
		}
		c.retryConfig = &cfg
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// GetWithQuery performs a GET request with URL-encoded query parameters.
func (c *Client) GetWithQuery(ctx context.Context, path string, query url.Values, headers map[string]string) ([]byte, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, "", headers)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, []byte(form.Encode()), "application/x-www-form-urlencoded", headers)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, headers map[string]string) ([]byte, error) {
	op := func(ctx context.Context) (interface{}, error) {
		return c.send(ctx, method, path, payload, contentType, headers)
	}

	if c.retryConfig == nil {
		res, err := op(ctx)
		if err != nil {
			return nil, err
		}
		return res.([]byte), nil
	}

	res, err := resilience.Retry(ctx, *c.retryConfig, op)
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType string, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func isHTTPRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return true
}
