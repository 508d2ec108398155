package match

import (
	"net/url"
	"strings"
)

// DomainMatch records whether the website found on a company page agrees
// with the one the caller expected.
type DomainMatch string

const (
	DomainMatched       DomainMatch = "matched"
	DomainMismatch      DomainMatch = "mismatch"
	DomainNotApplicable DomainMatch = "not_applicable"
)

// DomainOf returns the canonical domain of raw: the lowercased host with
// one leading "www." removed. Bare hosts such as "example.com" are
// accepted.
func DomainOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return strings.Trim(host, "/.")
}

// DomainsMatch compares two URLs or hosts by canonical domain.
func DomainsMatch(a, b string) bool {
	da, db := DomainOf(a), DomainOf(b)
	return da != "" && da == db
}

// CompareDomains grades an extracted website against the expected one.
func CompareDomains(expected, actual string) DomainMatch {
	if DomainOf(expected) == "" {
		return DomainNotApplicable
	}
	if DomainsMatch(expected, actual) {
		return DomainMatched
	}
	return DomainMismatch
}
