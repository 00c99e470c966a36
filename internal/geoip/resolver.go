// Package geoip resolves IP addresses against MaxMind GeoLite2 City and ASN
// databases.
package geoip

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

type asnReader interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
	Close() error
}

// Resolver implements risk.GeoResolver.
type Resolver struct {
	city cityReader
	asn  asnReader
}

var _ risk.GeoResolver = (*Resolver)(nil)

// Open opens both databases. The ASN database is optional; an empty path
// leaves ASN organisations unresolved.
func Open(cityDBPath, asnDBPath string) (*Resolver, error) {
	city, err := geoip2.Open(cityDBPath)
	if err != nil {
		return nil, fmt.Errorf("open city database %s: %w", cityDBPath, err)
	}

	r := &Resolver{city: city}
	if asnDBPath == "" {
		return r, nil
	}

	asn, err := geoip2.Open(asnDBPath)
	if err != nil {
		city.Close()
		return nil, fmt.Errorf("open asn database %s: %w", asnDBPath, err)
	}
	r.asn = asn
	return r, nil
}

// Close releases the database readers.
func (r *Resolver) Close() error {
	var firstErr error
	if r.city != nil {
		firstErr = r.city.Close()
	}
	if r.asn != nil {
		if err := r.asn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Resolve looks up country, coordinates and ASN organisation for ip.
// An ASN lookup failure is logged and leaves the organisation empty.
func (r *Resolver) Resolve(ctx context.Context, ipAddress string) (*risk.GeoInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address %q", ipAddress)
	}

	record, err := r.city.City(ip)
	if err != nil {
		return nil, fmt.Errorf("city lookup: %w", err)
	}

	info := &risk.GeoInfo{CountryCode: record.Country.IsoCode}
	// GeoLite2 leaves coordinates at zero when it has no location.
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		info.Location = &risk.Point{
			Latitude:  record.Location.Latitude,
			Longitude: record.Location.Longitude,
		}
	}

	if r.asn != nil {
		asn, err := r.asn.ASN(ip)
		if err != nil {
			logger.WithContext(ctx).Warn("asn lookup failed",
				zap.String("ip", ipAddress),
				zap.Error(err),
			)
		} else {
			info.ASNOrganization = asn.AutonomousSystemOrganization
		}
	}

	return info, nil
}
