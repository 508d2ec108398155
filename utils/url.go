package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var companyPath = regexp.MustCompile(`/company/([^/?#]+)`)

// EnsureScheme prefixes https:// to addresses given without a scheme.
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

// NormalizeCompanyURL resolves href against base and reduces it to the
// canonical company page address, dropping query strings and sub pages.
// It reports false for anything that is not a company page.
func NormalizeCompanyURL(href, base string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		b, err := url.Parse(EnsureScheme(base))
		if err != nil {
			return "", false
		}
		ref = b.ResolveReference(ref)
	}

	m := companyPath.FindStringSubmatch(ref.Path)
	if m == nil {
		return "", false
	}
	slug, err := url.PathUnescape(m[1])
	if err != nil {
		slug = m[1]
	}
	slug = strings.ToLower(slug)
	if slug == "" || slug == "unavailable" {
		return "", false
	}
	return "https://" + strings.ToLower(ref.Host) + "/company/" + url.PathEscape(slug) + "/", true
}

// AboutURL returns the "about" sub page of a company page.
func AboutURL(pageURL string) string {
	pageURL = strings.TrimRight(strings.TrimSpace(pageURL), "/")
	if strings.HasSuffix(pageURL, "/about") {
		return pageURL + "/"
	}
	return pageURL + "/about/"
}

// JoinURL appends path to base without doubling slashes.
func JoinURL(base, path string) string {
	return strings.TrimRight(EnsureScheme(base), "/") + "/" + strings.TrimLeft(path, "/")
}
