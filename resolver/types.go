// Package resolver turns a business name plus optional location and
// website hints into the matching company page and its details.
package resolver

import (
	"strings"

	"companyresolver/match"
	"companyresolver/scraper"
)

// Source records which stage of the pipeline produced a profile.
type Source string

const (
	SourceDirect Source = "direct"
	SourceSearch Source = "search"
)

// Request is one business to resolve.
type Request struct {
	BusinessName string `json:"business_name" validate:"required"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Website      string `json:"website,omitempty" validate:"omitempty,url|fqdn"`
}

// HasLocation reports whether a city or state hint was supplied.
func (r Request) HasLocation() bool {
	return strings.TrimSpace(r.City) != "" || strings.TrimSpace(r.State) != ""
}

// Key identifies equivalent requests for caching and de-duplication.
func (r Request) Key() string {
	return strings.Join([]string{
		match.Normalize(r.BusinessName),
		match.NormalizeCity(r.City),
		strings.ToLower(strings.TrimSpace(r.State)),
		match.DomainOf(r.Website),
	}, "|")
}

// Profile is a confirmed company page and what could be read from it.
// Missing details are nil.
type Profile struct {
	PageURL           string              `json:"page_url"`
	Website           *string             `json:"website"`
	EmployeeSizeRange *string             `json:"employee_size_range"`
	Industry          *string             `json:"industry"`
	Headquarters      *string             `json:"headquarters"`
	HQCity            *string             `json:"hq_city"`
	HQState           *string             `json:"hq_state"`
	FoundedYear       *int                `json:"founded_year"`
	Specialties       *string             `json:"specialties"`
	LocationMatch     match.LocationMatch `json:"location_match"`
	DomainMatch       match.DomainMatch   `json:"domain_match"`
	Source            Source              `json:"source"`
	// Query is the search query that led to the page; empty for direct hits.
	Query string `json:"query,omitempty"`
	// QueryLevel is the 1-based position of Query in the fallback order.
	QueryLevel int `json:"query_level,omitempty"`
}

// Result is the outcome for one request: a profile or a failure.
type Result struct {
	BusinessName string   `json:"business_name"`
	Profile      *Profile `json:"profile,omitempty"`
	Error        string   `json:"error,omitempty"`
	ErrorKind    string   `json:"error_kind,omitempty"`
}

// OK reports whether the result carries a profile.
func (r Result) OK() bool {
	return r.Profile != nil
}

// Success wraps a profile in a Result.
func Success(name string, p *Profile) Result {
	return Result{BusinessName: name, Profile: p}
}

// Failure converts err into a failure record.
func Failure(name string, err error) Result {
	return Result{BusinessName: name, Error: err.Error(), ErrorKind: Kind(err)}
}

func newProfile(pageURL string, d scraper.Details, req Request, loc match.LocationMatch) *Profile {
	p := &Profile{
		PageURL:           pageURL,
		Website:           optional(d.Website),
		EmployeeSizeRange: optional(d.CompanySize),
		Industry:          optional(d.Industry),
		Headquarters:      optional(d.Headquarters),
		HQCity:            optional(d.HQCity),
		HQState:           optional(d.HQState),
		Specialties:       optional(d.Specialties),
		LocationMatch:     loc,
		DomainMatch:       match.CompareDomains(req.Website, found(d.Website)),
	}
	if year, ok := scraper.FoundedYear(found(d.Founded)); ok {
		p.FoundedYear = &year
	}
	return p
}

func optional(v string) *string {
	if !scraper.Found(v) {
		return nil
	}
	return &v
}

func found(v string) string {
	if !scraper.Found(v) {
		return ""
	}
	return v
}
