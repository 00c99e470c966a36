package risk

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError reports an invalid setting at load time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid risk configuration: %s: %s", e.Field, e.Reason)
}

// Settings are the raw operator settings before normalisation.
type Settings struct {
	ReputationEnabled        bool
	ReputationAPIKey         string
	ReputationScoreThreshold float64
	MismatchEnabled          bool
	DistanceEnabled          bool
	MaxDistanceMiles         float64
	PortEnabled              bool
	NetworkTypeEnabled       bool
	CountryListMode          string
	CountryCodes             string
}

// Configuration is the validated, immutable check configuration.
type Configuration struct {
	checks                   map[CheckKind]bool
	countryListMode          CountryListMode
	countryCodes             map[string]struct{}
	maxDistanceMiles         float64
	reputationAPIKey         string
	reputationScoreThreshold float64
}

// NewConfiguration validates s and normalises country codes.
func NewConfiguration(s Settings) (Configuration, error) {
	if s.ReputationScoreThreshold < 0 {
		return Configuration{}, &ConfigurationError{Field: "reputation_score_threshold", Reason: "must be non-negative"}
	}
	if s.MaxDistanceMiles < 0 {
		return Configuration{}, &ConfigurationError{Field: "max_distance_miles", Reason: "must be non-negative"}
	}

	mode, err := ParseCountryListMode(s.CountryListMode)
	if err != nil {
		return Configuration{}, err
	}

	codes, err := ParseCountryCodes(s.CountryCodes)
	if err != nil {
		return Configuration{}, err
	}

	return Configuration{
		checks: map[CheckKind]bool{
			KindReputation:  s.ReputationEnabled,
			KindCountryList: mode != CountryListDisabled,
			KindMismatch:    s.MismatchEnabled,
			KindDistance:    s.DistanceEnabled,
			KindPort:        s.PortEnabled,
			KindNetworkType: s.NetworkTypeEnabled,
		},
		countryListMode:          mode,
		countryCodes:             codes,
		maxDistanceMiles:         s.MaxDistanceMiles,
		reputationAPIKey:         strings.TrimSpace(s.ReputationAPIKey),
		reputationScoreThreshold: s.ReputationScoreThreshold,
	}, nil
}

// ParseCountryListMode accepts the numeric plugin values 0, 1 and 2 or their names.
func ParseCountryListMode(raw string) (CountryListMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "disabled":
		return CountryListDisabled, nil
	case "1", "allow", "allow_only":
		return CountryListAllowOnly, nil
	case "2", "block", "block_listed":
		return CountryListBlockListed, nil
	}
	return CountryListDisabled, &ConfigurationError{Field: "country_list_mode", Reason: fmt.Sprintf("unknown mode %q", raw)}
}

// ParseCountryCodes splits a comma separated list into upper-case codes.
// Blank entries are dropped.
func ParseCountryCodes(raw string) (map[string]struct{}, error) {
	codes := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
			return nil, &ConfigurationError{Field: "country_codes", Reason: fmt.Sprintf("%q is not a two-letter country code", part)}
		}
		codes[code] = struct{}{}
	}
	return codes, nil
}

// Enabled reports whether a check is switched on.
func (c Configuration) Enabled(kind CheckKind) bool {
	return c.checks[kind]
}

// AnyGeoCheckEnabled reports whether any check that consumes geo data is on.
// The reputation lookup is gated on it.
func (c Configuration) AnyGeoCheckEnabled() bool {
	return c.countryListMode != CountryListDisabled ||
		c.Enabled(KindMismatch) ||
		c.Enabled(KindDistance) ||
		c.Enabled(KindNetworkType)
}

// ReputationActive reports whether the reputation lookup will run.
func (c Configuration) ReputationActive() bool {
	return c.Enabled(KindReputation) && c.reputationAPIKey != "" && c.AnyGeoCheckEnabled()
}

func (c Configuration) CountryListMode() CountryListMode { return c.countryListMode }

func (c Configuration) MaxDistanceMiles() float64 { return c.maxDistanceMiles }

func (c Configuration) ReputationScoreThreshold() float64 { return c.reputationScoreThreshold }

// HasCountry reports whether code is in the configured list.
func (c Configuration) HasCountry(code string) bool {
	_, ok := c.countryCodes[code]
	return ok
}

// CountryCodes returns the configured codes sorted.
func (c Configuration) CountryCodes() []string {
	out := make([]string, 0, len(c.countryCodes))
	for code := range c.countryCodes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Summary is a redacted, serialisable view of a Configuration.
type Summary struct {
	EnabledChecks            []CheckKind `json:"enabled_checks"`
	CountryListMode          string      `json:"country_list_mode"`
	CountryCodes             []string    `json:"country_codes"`
	MaxDistanceMiles         float64     `json:"max_distance_miles"`
	ReputationScoreThreshold float64     `json:"reputation_score_threshold"`
	ReputationAPIKeySet      bool        `json:"reputation_api_key_set"`
	ReputationActive         bool        `json:"reputation_active"`
}

// Summary describes c without exposing the API key.
func (c Configuration) Summary() Summary {
	enabled := make([]CheckKind, 0, len(checkOrder))
	for _, kind := range checkOrder {
		if c.Enabled(kind) {
			enabled = append(enabled, kind)
		}
	}
	return Summary{
		EnabledChecks:            enabled,
		CountryListMode:          c.countryListMode.String(),
		CountryCodes:             c.CountryCodes(),
		MaxDistanceMiles:         c.maxDistanceMiles,
		ReputationScoreThreshold: c.reputationScoreThreshold,
		ReputationAPIKeySet:      c.reputationAPIKey != "",
		ReputationActive:         c.ReputationActive(),
	}
}
