package risk

import (
	"fmt"
	"strconv"
	"strings"
)

// proxyPorts are probed in order; the first open one is reported.
var proxyPorts = []int{
	1194,  // OpenVPN
	51820, // WireGuard
	1080,  // SOCKS
	8080,  // HTTP proxy
	3128,  // Squid
}

// ProxyPorts returns a copy of the probed VPN and proxy ports in priority order.
func ProxyPorts() []int {
	return append([]int(nil), proxyPorts...)
}

var datacenterKeywords = []string{
	"AS", "Host", "Server", "Data Center", "Cloud", "Hosting",
	"DigitalOcean", "Amazon", "Google", "Microsoft",
}

var mobileKeywords = []string{"T-Mobile", "Verizon", "Sprint", "AT&T", "Vodafone"}

// CheckReputation flags when any field has reports or a score above threshold.
// Each field's status is judged on its own score.
func CheckReputation(report ReputationReport, threshold float64) Signal {
	var reasons []string
	for _, f := range report.fields() {
		bad := f.value.Score > threshold
		if f.value.Reports <= 0 && !bad {
			continue
		}
		status := "OK"
		if bad {
			status = "BAD"
		}
		reasons = append(reasons, fmt.Sprintf("Reputation lookup: %s has %d reports and a score of %s. Status: %s",
			f.label, f.value.Reports, formatNumber(f.value.Score), status))
	}
	if len(reasons) == 0 {
		return Clear()
	}
	return Flagged(reasons[0], reasons[1:]...)
}

// CheckCountryList applies the allow or block list to the IP country.
// An unknown IP country is never flagged.
func CheckCountryList(ipCountry string, cfg Configuration) Signal {
	if ipCountry == "" {
		return Clear()
	}
	listed := cfg.HasCountry(strings.ToUpper(ipCountry))
	switch cfg.CountryListMode() {
	case CountryListAllowOnly:
		if !listed {
			return Flagged(fmt.Sprintf("IP country (%s) is not in the allowed list", ipCountry))
		}
	case CountryListBlockListed:
		if listed {
			return Flagged(fmt.Sprintf("IP country (%s) is in the blocked list", ipCountry))
		}
	}
	return Clear()
}

// CheckMismatch flags when the IP country differs from the billing country.
// The comparison is exact.
func CheckMismatch(ipCountry, billingCountry string) Signal {
	if ipCountry == "" || billingCountry == "" {
		return Clear()
	}
	if ipCountry != billingCountry {
		return Flagged(fmt.Sprintf("IP country (%s) does not match billing country (%s)", ipCountry, billingCountry))
	}
	return Clear()
}

// CheckDistance flags when distanceMiles is strictly greater than maxMiles.
func CheckDistance(distanceMiles, maxMiles float64) Signal {
	if distanceMiles > maxMiles {
		return Flagged(fmt.Sprintf("Distance between IP and billing address (%s miles) exceeds the maximum allowed distance of %s miles",
			strconv.FormatFloat(distanceMiles, 'f', 2, 64), formatNumber(maxMiles)))
	}
	return Clear()
}

// CheckOpenPort flags the open port found on ip. A port of zero means none was open.
func CheckOpenPort(ip string, port int) Signal {
	if port <= 0 {
		return Clear()
	}
	return Flagged(fmt.Sprintf("Common VPN/proxy port %d is open on IP %s", port, ip))
}

// CheckNetworkType classifies an ASN organisation. Data center and mobile
// matches are independent and both are reported.
func CheckNetworkType(asnOrg string) Signal {
	if asnOrg == "" {
		return Clear()
	}
	var reasons []string
	if kw, ok := matchKeyword(asnOrg, datacenterKeywords); ok {
		reasons = append(reasons, fmt.Sprintf("IP address belongs to a data center network: %s (matched %q)", asnOrg, kw))
	}
	if kw, ok := matchKeyword(asnOrg, mobileKeywords); ok {
		reasons = append(reasons, fmt.Sprintf("IP address belongs to a mobile network: %s (matched %q)", asnOrg, kw))
	}
	if len(reasons) == 0 {
		return Clear()
	}
	return Flagged(reasons[0], reasons[1:]...)
}

func matchKeyword(s string, keywords []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
