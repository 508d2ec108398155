package match

import (
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

// LocationMatch describes how well a page or search result agrees with
// the caller's city/state hints.
type LocationMatch string

const (
	FullMatch     LocationMatch = "full_match"
	PartialMatch  LocationMatch = "partial_match"
	Mismatch      LocationMatch = "mismatch"
	NotApplicable LocationMatch = "not_applicable"
)

var cityAliases = map[string]string{
	"san fransisco": "san francisco",
	"san fran":      "san francisco",
	"sf":            "san francisco",
	"new york city": "new york",
	"nyc":           "new york",
	"la":            "los angeles",
	"nola":          "new orleans",
	"indy":          "indianapolis",
	"philly":        "philadelphia",
	"saint louis":   "st. louis",
	"saint paul":    "st. paul",
	"ft worth":      "fort worth",
	"ft. worth":     "fort worth",
}

var stateNames = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas",
	"CA": "california", "CO": "colorado", "CT": "connecticut", "DE": "delaware",
	"FL": "florida", "GA": "georgia", "HI": "hawaii", "ID": "idaho",
	"IL": "illinois", "IN": "indiana", "IA": "iowa", "KS": "kansas",
	"KY": "kentucky", "LA": "louisiana", "ME": "maine", "MD": "maryland",
	"MA": "massachusetts", "MI": "michigan", "MN": "minnesota", "MS": "mississippi",
	"MO": "missouri", "MT": "montana", "NE": "nebraska", "NV": "nevada",
	"NH": "new hampshire", "NJ": "new jersey", "NM": "new mexico", "NY": "new york",
	"NC": "north carolina", "ND": "north dakota", "OH": "ohio", "OK": "oklahoma",
	"OR": "oregon", "PA": "pennsylvania", "RI": "rhode island", "SC": "south carolina",
	"SD": "south dakota", "TN": "tennessee", "TX": "texas", "UT": "utah",
	"VT": "vermont", "VA": "virginia", "WA": "washington", "WV": "west virginia",
	"WI": "wisconsin", "WY": "wyoming", "DC": "district of columbia",
}

var stateAbbreviations = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for abbr, name := range stateNames {
		m[name] = abbr
	}
	return m
}()

// stateCodePatterns match each two-letter code written in capitals.
var stateCodePatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(stateNames))
	for abbr := range stateNames {
		m[abbr] = regexp.MustCompile(`\b` + abbr + `\b`)
	}
	return m
}()

// NormalizeCity lowercases a city and maps well-known nicknames to the
// name the site uses.
func NormalizeCity(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	if alias, ok := cityAliases[c]; ok {
		return alias
	}
	return c
}

// CityMatches reports whether expected names the city mentioned in text.
// The comparison is lenient on purpose since location snippets are noisy.
func CityMatches(expected, text string) bool {
	want := NormalizeCity(expected)
	if want == "" || strings.TrimSpace(text) == "" {
		return false
	}
	lowered := strings.ToLower(text)

	for _, part := range strings.Split(lowered, ",") {
		part = strings.Join(strings.Fields(part), " ")
		if len(part) <= 2 {
			continue
		}
		got := NormalizeCity(part)
		if got == want {
			return true
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			if lengthRatio(want, got) >= 0.6 {
				return true
			}
		}
		if prefixOverlap(want, got) >= 0.75 {
			return true
		}
	}

	return containsWord(lowered, want)
}

// StateMatches reports whether text mentions expected in its full-name or
// two-letter form. Two-letter forms must be written in capitals or stand
// alone between commas, so words like "in" or "or" are not mistaken for
// states.
func StateMatches(expected, text string) bool {
	expected = strings.TrimSpace(expected)
	if expected == "" || strings.TrimSpace(text) == "" {
		return false
	}

	forms := stateForms(expected)
	lowered := strings.ToLower(text)

	for _, form := range forms {
		if len(form) == 2 {
			if re, ok := stateCodePatterns[strings.ToUpper(form)]; ok && re.MatchString(text) {
				return true
			}
			continue
		}
		if containsWord(lowered, strings.ToLower(form)) {
			return true
		}
	}

	for _, part := range strings.Split(lowered, ",") {
		part = strings.TrimSpace(part)
		for _, form := range forms {
			if strings.EqualFold(part, form) {
				return true
			}
		}
	}
	return false
}

func stateForms(expected string) []string {
	lower := strings.ToLower(expected)
	upper := strings.ToUpper(expected)

	forms := []string{lower}
	if name, ok := stateNames[upper]; ok {
		forms = append(forms, name, upper)
	}
	if abbr, ok := stateAbbreviations[lower]; ok {
		forms = append(forms, abbr)
	}

	slices.Sort(forms)
	return slices.Compact(forms)
}

// Location grades text against the optional city and state hints.
// A hint left empty is not compared; when every supplied hint matches
// the result is FullMatch.
func Location(city, state, text string) LocationMatch {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	if city == "" && state == "" {
		return NotApplicable
	}

	supplied, matched := 0, 0
	if city != "" {
		supplied++
		if CityMatches(city, text) {
			matched++
		}
	}
	if state != "" {
		supplied++
		if StateMatches(state, text) {
			matched++
		}
	}

	switch {
	case matched == supplied:
		return FullMatch
	case matched > 0:
		return PartialMatch
	default:
		return Mismatch
	}
}

func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	re := regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(word) + `($|[^\p{L}\p{N}])`)
	return re.MatchString(text)
}

func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

// prefixOverlap counts equal characters at equal positions, relative to
// the longer string.
func prefixOverlap(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	same := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(longest)
}
