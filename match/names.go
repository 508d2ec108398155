// Package match holds the pure comparison helpers used while resolving a
// company page: business-name segmentation, city/state matching and
// domain canonicalization.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/exp/slices"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var specialSeparators = []string{" - ", " & ", " + ", " | "}

// legalSuffixes never make a useful search query on their own.
var legalSuffixes = []string{
	"inc", "inc.", "llc", "l.l.c.", "ltd", "ltd.", "co", "co.", "corp", "corp.",
	"corporation", "company", "lp", "llp", "plc", "gmbh", "pllc", "pc", "p.c.",
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9-]`)

// Normalize lowercases, trims and folds accented characters to ASCII
// where a plain equivalent exists.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return strings.Join(strings.Fields(folded), " ")
}

// Split breaks a business name into parts using the first delimiter
// family that yields more than one part. The returned separator is empty
// when the name could not be split.
func Split(name string) ([]string, string) {
	normalized := Normalize(name)
	if normalized == "" {
		return nil, ""
	}

	if parts := splitPeriods(normalized); len(parts) > 1 {
		return parts, ". "
	}

	if parts := splitTrimmed(normalized, ","); len(parts) > 1 {
		return parts, ", "
	}

	for _, sep := range specialSeparators {
		if !strings.Contains(normalized, sep) {
			continue
		}
		if parts := splitTrimmed(normalized, sep); len(parts) > 1 {
			return parts, sep
		}
	}

	words := strings.Fields(normalized)
	if len(words) >= 4 {
		var chunks []string
		for i := 0; i < len(words); i += 2 {
			end := i + 2
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, strings.Join(words[i:end], " "))
		}
		return chunks, " "
	}

	return []string{normalized}, ""
}

// splitPeriods only splits on ". " so that abbreviations such as "inc."
// at the end of a name stay attached to their part.
func splitPeriods(s string) []string {
	raw := strings.Split(s, ". ")
	parts := make([]string, 0, len(raw))
	for i, p := range raw {
		if i < len(raw)-1 {
			p += "."
		}
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func splitTrimmed(s, sep string) []string {
	var parts []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// SegmentBusinessName returns the search queries to try for a business,
// most specific first: the full name, then each split part, then shorter
// word prefixes of the leading part.
func SegmentBusinessName(name string) []string {
	full := Normalize(name)
	if full == "" {
		return nil
	}

	queries := []string{full}
	add := func(q string) {
		q = strings.Trim(q, " ,-&+|")
		if q == "" || isLegalSuffix(q) || slices.Contains(queries, q) {
			return
		}
		queries = append(queries, q)
	}

	parts, _ := Split(name)
	for _, p := range parts {
		add(p)
	}

	lead := full
	if len(parts) > 0 {
		lead = parts[0]
	}
	words := strings.Fields(lead)
	for i := len(words) - 1; i > 0; i-- {
		add(strings.Join(words[:i], " "))
	}

	return queries
}

func isLegalSuffix(s string) bool {
	return slices.Contains(legalSuffixes, strings.ToLower(strings.TrimSpace(s)))
}

// Slugify produces the path segment used to guess a company page
// address directly from a business name.
func Slugify(name string) string {
	s := strings.ReplaceAll(Normalize(name), " ", "-")
	return slugUnsafe.ReplaceAllString(s, "")
}
