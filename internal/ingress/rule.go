package ingress

import "strings"

// CatchAllService is the Cloudflare Tunnel service that returns HTTP 404.
// It is always kept as the last rule in the ingress configuration.
const CatchAllService = "http_status:404"

// OriginRequest carries the per-rule origin options this core supports.
type OriginRequest struct {
	// NoTLSVerify disables TLS verification against the origin.
	NoTLSVerify bool

	// HTTPHostHeader overrides the Host header sent to the origin.
	HTTPHostHeader string
}

// Rule is a single ingress rule: hostname (and optional path) to backend
// service. Rules without a hostname are catch-alls.
type Rule struct {
	Hostname      string
	Path          string
	Service       string
	OriginRequest *OriginRequest
}

// IsCatchAll returns true if the rule is a catch-all rule (no hostname).
func IsCatchAll(r Rule) bool {
	return r.Hostname == ""
}

// RulesEqual compares two rules by hostname, path and service.
func RulesEqual(a, b Rule) bool {
	return a.Hostname == b.Hostname &&
		a.Path == b.Path &&
		a.Service == b.Service
}

// NormalizeHostname strips a single trailing dot from raw and appends
// ".<domain>" unless raw already ends with the domain suffix.
func NormalizeHostname(raw, domain string) string {
	hostname := strings.TrimSuffix(raw, ".")

	if !strings.HasSuffix(hostname, domain) {
		hostname = hostname + "." + domain
	}

	return hostname
}
