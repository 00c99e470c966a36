package risk

import (
	"context"
	"time"
)

// GeoResolver maps an IP to its country, location and network operator.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*GeoInfo, error)
}

// ReputationClient looks up prior fraud reports for a customer identity.
type ReputationClient interface {
	Lookup(ctx context.Context, q ReputationQuery) (*ReputationReport, error)
}

// PortProbe reports whether a TCP connection to ip:port succeeds within timeout.
// Any failure counts as closed.
type PortProbe interface {
	TryConnect(ctx context.Context, ip string, port int, timeout time.Duration) bool
}

// BillingGeocoder turns a postal address into coordinates.
type BillingGeocoder interface {
	Geocode(ctx context.Context, addr BillingAddress) (Point, error)
}
