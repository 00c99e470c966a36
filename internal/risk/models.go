package risk

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckKind names a signal check.
type CheckKind string

const (
	KindReputation  CheckKind = "reputation"
	KindCountryList CheckKind = "country_list"
	KindMismatch    CheckKind = "mismatch"
	KindDistance    CheckKind = "distance"
	KindPort        CheckKind = "port"
	KindNetworkType CheckKind = "network_type"
)

// checkOrder is the fixed evaluation order.
var checkOrder = []CheckKind{
	KindReputation,
	KindCountryList,
	KindMismatch,
	KindDistance,
	KindPort,
	KindNetworkType,
}

// CountryListMode selects how CountryCodes are applied.
type CountryListMode int

const (
	CountryListDisabled CountryListMode = iota
	CountryListAllowOnly
	CountryListBlockListed
)

func (m CountryListMode) String() string {
	switch m {
	case CountryListAllowOnly:
		return "allow_only"
	case CountryListBlockListed:
		return "block_listed"
	default:
		return "disabled"
	}
}

// BillingAddress is the postal address used for geocoding.
type BillingAddress struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether the address has nothing to geocode. A country on its
// own does not locate the customer.
func (a BillingAddress) IsZero() bool {
	a.Country = ""
	return a == BillingAddress{}
}

// RequestContext is everything known about the transaction being checked.
type RequestContext struct {
	IP             string         `json:"ip"`
	BillingCountry string         `json:"billing_country"`
	BillingAddress BillingAddress `json:"billing_address"`
	Email          string         `json:"email,omitempty"`
	FullName       string         `json:"full_name,omitempty"`
	Phone          string         `json:"phone,omitempty"`
}

// FullName joins a first and last name the way billing records store them.
func FullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoInfo is what an IP resolves to. Location and ASNOrganization may be absent.
type GeoInfo struct {
	CountryCode     string
	Location        *Point
	ASNOrganization string
}

// ReputationQuery is sent to the reputation service.
type ReputationQuery struct {
	APIKey string
	Email  string
	IP     string
	Name   string
	Phone  string
}

// FieldReputation is the reputation of one identity attribute.
type FieldReputation struct {
	Score   float64 `json:"score"`
	Reports int     `json:"reports"`
}

// ReputationReport holds per-field reputation results.
type ReputationReport struct {
	Email FieldReputation `json:"email"`
	IP    FieldReputation `json:"ip"`
	Name  FieldReputation `json:"name"`
	Phone FieldReputation `json:"phone"`
}

type reputationField struct {
	label string
	value FieldReputation
}

func (r ReputationReport) fields() []reputationField {
	return []reputationField{
		{"Email address", r.Email},
		{"IP address", r.IP},
		{"Name", r.Name},
		{"Phone number", r.Phone},
	}
}

// Signal is the outcome of one check: clear, or flagged with reasons.
type Signal struct {
	flagged bool
	reasons []string
}

// Clear is the no-evidence outcome.
func Clear() Signal {
	return Signal{}
}

// Flagged builds a flagged outcome. At least one reason is required.
func Flagged(reason string, more ...string) Signal {
	reasons := make([]string, 0, 1+len(more))
	reasons = append(reasons, reason)
	reasons = append(reasons, more...)
	return Signal{flagged: true, reasons: reasons}
}

// IsFlagged reports whether the check found evidence of fraud.
func (s Signal) IsFlagged() bool {
	return s.flagged
}

// Reasons returns a copy of the reasons.
func (s Signal) Reasons() []string {
	out := make([]string, len(s.reasons))
	copy(out, s.reasons)
	return out
}

// Verdict is the final decision. IsFraud is true exactly when Reasons is non-empty.
type Verdict struct {
	IsFraud bool     `json:"is_fraud"`
	Reasons []string `json:"reasons"`
}

// ClearVerdict returns the not-fraud verdict.
func ClearVerdict() Verdict {
	return Verdict{Reasons: []string{}}
}

func verdictFrom(s Signal) Verdict {
	if !s.IsFlagged() {
		return ClearVerdict()
	}
	return Verdict{IsFraud: true, Reasons: s.Reasons()}
}

// Note renders the reasons as a single billing note.
func (v Verdict) Note() string {
	return strings.Join(v.Reasons, " ")
}

// Evaluation is one recorded run of the engine.
type Evaluation struct {
	ID          uuid.UUID      `json:"id"`
	InvoiceID   string         `json:"invoice_id,omitempty"`
	Request     RequestContext `json:"request"`
	Verdict     Verdict        `json:"verdict"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
	Duration    time.Duration  `json:"duration_ns"`
}
