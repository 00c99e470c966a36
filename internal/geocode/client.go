// Package geocode resolves billing addresses to coordinates using a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/httpclient"
	"github.com/richxcame/geoippro/pkg/resilience"
)

// ErrAddressNotFound is returned when the search yields no result.
var ErrAddressNotFound = errors.New("address not found")

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Client implements risk.BillingGeocoder.
type Client struct {
	http *httpclient.Client
}

var _ risk.BillingGeocoder = (*Client)(nil)

// NewClient creates a geocoder for cfg.BaseURL.
func NewClient(cfg config.GeocoderConfig) *Client {
	retry := resilience.ConservativeRetryConfig()
	retry.InitialBackoff = 250 * time.Millisecond
	return &Client{
		http: httpclient.NewClient(cfg.BaseURL, cfg.Timeout).With(
			httpclient.WithUserAgent(cfg.UserAgent),
			httpclient.WithRetry(retry),
		),
	}
}

// Geocode returns the first match for addr.
func (c *Client) Geocode(ctx context.Context, addr risk.BillingAddress) (risk.Point, error) {
	q := url.Values{
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	street := strings.TrimSpace(strings.Join([]string{addr.Line1, addr.Line2}, " "))
	setIf(q, "street", street)
	setIf(q, "city", addr.City)
	setIf(q, "state", addr.State)
	setIf(q, "postalcode", addr.PostalCode)
	setIf(q, "countrycodes", strings.ToLower(addr.Country))

	body, err := c.http.GetWithQuery(ctx, "/search", q, nil)
	if err != nil {
		return risk.Point{}, fmt.Errorf("geocode request: %w", err)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return risk.Point{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return risk.Point{}, ErrAddressNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return risk.Point{}, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return risk.Point{}, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	return risk.Point{Latitude: lat, Longitude: lon}, nil
}

func setIf(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}
