// Package scraper extracts structured company details from a loaded
// company page.
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// NotFound marks a field the page did not expose.
const NotFound = "Not found"

// Details holds the raw field values read from a company page. Every
// field is either a cleaned value or NotFound.
type Details struct {
	Website      string `json:"website"`
	CompanySize  string `json:"company_size"`
	Industry     string `json:"industry"`
	Headquarters string `json:"headquarters"`
	HQCity       string `json:"hq_city"`
	HQState      string `json:"hq_state"`
	Founded      string `json:"founded"`
	Specialties  string `json:"specialties"`
}

// NewDetails returns Details with every field set to NotFound.
func NewDetails() Details {
	return Details{
		Website:      NotFound,
		CompanySize:  NotFound,
		Industry:     NotFound,
		Headquarters: NotFound,
		HQCity:       NotFound,
		HQState:      NotFound,
		Founded:      NotFound,
		Specialties:  NotFound,
	}
}

// Found reports whether v carries an actual value.
func Found(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != NotFound
}

// CoreEmpty reports whether none of website, size, headquarters,
// industry or founded were found.
func (d Details) CoreEmpty() bool {
	for _, v := range []string{d.Website, d.CompanySize, d.Headquarters, d.Industry, d.Founded} {
		if Found(v) {
			return false
		}
	}
	return true
}

// Missing lists the names of fields left at NotFound.
func (d Details) Missing() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"website", d.Website},
		{"company_size", d.CompanySize},
		{"industry", d.Industry},
		{"headquarters", d.Headquarters},
		{"hq_city", d.HQCity},
		{"hq_state", d.HQState},
		{"founded", d.Founded},
		{"specialties", d.Specialties},
	}
	var missing []string
	for _, f := range fields {
		if !Found(f.value) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Extractor reads Details out of page markup. It never fails: anything
// it cannot find stays NotFound.
type Extractor struct {
	patterns []IndustryPattern
	catalog  *IndustryCatalog
	log      logrus.FieldLogger
}

// NewExtractor builds an Extractor using the default industry pattern
// chain. A nil catalog disables industry code harvesting.
func NewExtractor(log logrus.FieldLogger, catalog *IndustryCatalog) *Extractor {
	return &Extractor{
		patterns: DefaultIndustryPatterns(catalog),
		catalog:  catalog,
		log:      log,
	}
}

// Extract runs the structural pass and, if industry is still missing,
// the embedded data pattern chain.
func (e *Extractor) Extract(html string) Details {
	details := NewDetails()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.log.WithError(err).Warn("could not parse company page markup")
	} else {
		readDefinitionList(doc, &details)
		readHeadquarters(doc, &details)
	}

	if e.catalog != nil {
		if n := e.catalog.Harvest(html); n > 0 {
			e.log.WithField("count", n).Debug("harvested industry codes")
		}
	}

	if !Found(details.Industry) {
		if industry, pattern, ok := MatchIndustry(e.patterns, html); ok {
			details.Industry = industry
			e.log.WithField("pattern", pattern).Debugf("industry from embedded data: %s", industry)
		}
	}

	if missing := details.Missing(); len(missing) > 0 {
		e.log.WithField("missing", missing).Info("partial company details")
	}
	return details
}

// CleanText removes extra whitespace from text
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
