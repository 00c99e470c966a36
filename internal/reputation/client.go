// Package reputation queries a FraudRecord-compatible reputation API.
package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/httpclient"
	"github.com/richxcame/geoippro/pkg/resilience"
)

const lookupPath = "/api/v1/"

// ErrLookupRejected is returned when the API answers with a non-success status.
var ErrLookupRejected = errors.New("reputation lookup rejected")

type fieldResponse struct {
	Score   float64 `json:"score"`
	Reports int     `json:"reports"`
}

type lookupResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Email   fieldResponse `json:"email"`
	IP      fieldResponse `json:"ip"`
	Name    fieldResponse `json:"name"`
	Phone   fieldResponse `json:"phone"`
}

// Client implements risk.ReputationClient over HTTP.
type Client struct {
	http    *httpclient.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

var _ risk.ReputationClient = (*Client)(nil)

// NewClient creates a reputation API client guarded by a circuit breaker.
func NewClient(cfg config.ReputationConfig) *Client {
	settings := resilience.BuildSettings("reputation-api",
		cfg.BreakerInterval, cfg.BreakerTimeout, cfg.BreakerFailures, cfg.BreakerSuccesses)

	return &Client{
		http:    httpclient.NewClient(cfg.BaseURL, cfg.Timeout),
		breaker: resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation("reputation-api")),
		retry: resilience.RetryConfig{
			MaxAttempts:       2,
			InitialBackoff:    200 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2,
			EnableJitter:      true,
			RetryableChecker:  retryable,
		},
	}
}

// Lookup posts the identity fields and returns the per-field report.
func (c *Client) Lookup(ctx context.Context, q risk.ReputationQuery) (*risk.ReputationReport, error) {
	form := url.Values{
		"key":   {q.APIKey},
		"email": {q.Email},
		"ip":    {q.IP},
		"name":  {q.Name},
		"phone": {q.Phone},
	}

	res, err := resilience.RetryWithBreaker(ctx, c.retry, c.breaker, func(ctx context.Context) (interface{}, error) {
		return c.http.PostForm(ctx, lookupPath, form, nil)
	})
	if err != nil {
		return nil, err
	}

	var resp lookupResponse
	if err := json.Unmarshal(res.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("decode reputation response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: status %q %s", ErrLookupRejected, resp.Status, resp.Message)
	}

	return &risk.ReputationReport{
		Email: risk.FieldReputation(resp.Email),
		IP:    risk.FieldReputation(resp.IP),
		Name:  risk.FieldReputation(resp.Name),
		Phone: risk.FieldReputation(resp.Phone),
	}, nil
}

func retryable(err error) bool {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return true
}
