package scraper

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// IndustryPattern locates one known embedded representation of a
// company's industry. Extract turns a single match into an industry
// name.
type IndustryPattern struct {
	Name    string
	Expr    *regexp.Regexp
	Extract func(match []string) (string, bool)
}

var (
	industryNameField = regexp.MustCompile(`"industryName":"((?:[^"\\]|\\.)+)"`)
	nameField         = regexp.MustCompile(`"name":"((?:[^"\\]|\\.)+)"`)
)

// DefaultIndustryPatterns returns the chain tried against a page source,
// most specific first. When catalog is non-nil a last pattern resolves
// bare industry URNs through it.
func DefaultIndustryPatterns(catalog *IndustryCatalog) []IndustryPattern {
	patterns := []IndustryPattern{
		embedded("data-block", `(?s)(\{"data":\{.*?"industry".*?\})`),
		embedded("hydration", `(?s)(voyagerPageJsBeforeHydration.*?"industry".*?\})`),
		embedded("entity-data", `(?s)("data":\{"entityUrn":.*?"industry".*?\}\})`),
		embedded("industry-name", `(?s)("companyPageUrl":.*?,"industryName":"[^"]+?")`),
		embedded("industry-v2", `(?s)(\{\s*"companyPageUrl".*?"industryV2".*?\})`),
		embedded("mini-company", `(?s)("miniCompany":.*?"industries":.*?\])`),
		embedded("industry-object", `(?s)("industry":\{.*?"name":"[^"]+")`),
		embedded("dash-company", `(?s)(\{"\$type":"com\.linkedin\.voyager\.dash\.organization\.Company".*?\})`),
	}
	if catalog != nil {
		patterns = append(patterns, IndustryPattern{
			Name: "industry-urn",
			Expr: regexp.MustCompile(`"industry(?:Urn|V2Urn|Urns)?":\[?"urn:li:fsd_industry:(\d+)"`),
			Extract: func(match []string) (string, bool) {
				if len(match) < 2 {
					return "", false
				}
				return catalog.Lookup(match[1])
			},
		})
	}
	return patterns
}

func embedded(name, expr string) IndustryPattern {
	return IndustryPattern{
		Name: name,
		Expr: regexp.MustCompile(expr),
		Extract: func(match []string) (string, bool) {
			return industryFromFragment(match[0])
		},
	}
}

// MatchIndustry tries each pattern in order against the raw source and
// its entity-decoded form. The first pattern that yields a name wins.
func MatchIndustry(patterns []IndustryPattern, source string) (string, string, bool) {
	sources := []string{source}
	if decoded := html.UnescapeString(source); decoded != source {
		sources = append(sources, decoded)
	}

	for _, p := range patterns {
		for _, src := range sources {
			for _, m := range p.Expr.FindAllStringSubmatch(src, -1) {
				if name, ok := p.Extract(m); ok {
					return name, p.Name, true
				}
			}
		}
	}
	return "", "", false
}

// industryFromFragment reads an industry name out of a fragment of
// embedded JSON.
func industryFromFragment(fragment string) (string, bool) {
	if strings.Contains(fragment, `"industryName":"`) {
		if m := industryNameField.FindStringSubmatch(fragment); m != nil {
			return decodeJSONString(m[1])
		}
	}

	for _, marker := range []string{`"industry":{`, `"industries":[{`} {
		idx := strings.Index(fragment, marker)
		if idx < 0 {
			continue
		}
		if m := nameField.FindStringSubmatch(fragment[idx:]); m != nil {
			return decodeJSONString(m[1])
		}
	}

	if strings.Contains(fragment, `"miniCompany":`) && strings.Contains(fragment, `"industries":`) {
		return industryFromMiniCompany(fragment)
	}
	return "", false
}

func industryFromMiniCompany(fragment string) (string, bool) {
	idx := strings.Index(fragment, "{")
	if idx < 0 {
		return "", false
	}
	body := strings.TrimSuffix("{"+fragment[idx+1:], ",")
	if !strings.HasSuffix(body, "}") {
		body += "}"
	}

	var block struct {
		Industries []struct {
			Name string `json:"name"`
		} `json:"industries"`
	}
	if err := json.Unmarshal([]byte(body), &block); err != nil {
		return "", false
	}
	if len(block.Industries) == 0 || strings.TrimSpace(block.Industries[0].Name) == "" {
		return "", false
	}
	return block.Industries[0].Name, true
}

func decodeJSONString(raw string) (string, bool) {
	s, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		s = raw
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
