package search

import (
	"net/url"
	"strings"

	"companyresolver/match"
	"companyresolver/scraper"
	"companyresolver/utils"

	"github.com/PuerkitoBio/goquery"
)

// DefaultContainerLevels is how far above a result link the location
// snippet is looked for.
const DefaultContainerLevels = 5

// Result link selectors, tried in order. The first one that finds
// anything wins.
var resultSelectors = []string{
	`a.app-aware-link[href*="/company/"]`,
	`div.search-results [href*="/company/"]`,
	`ul.reusable-search__entity-result-list > li a[href*="/company/"]`,
	`span.entity-result__title a[href*="/company/"]`,
	`div[data-view-name="search-entity-result-universal-template"] a[href*="/company/"]`,
}

// CandidateLink is one company found on a search results page.
type CandidateLink struct {
	URL        string   `json:"url"`
	AnchorText string   `json:"anchor_text"`
	DOMContext string   `json:"dom_context"`
	Levels     []string `json:"-"`
}

// ResultsURL builds the company search address for query.
func ResultsURL(base, query string) string {
	q := strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(query)), "+", "%20")
	return utils.JoinURL(base, "/search/results/companies/?keywords="+q)
}

// HasNoResults reports whether the page shows the empty search state.
func HasNoResults(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find("h2.artdeco-empty-state__headline").Length() > 0
}

// Candidates parses company links from a search results page in the
// order the site returned them, one entry per company.
func Candidates(html, base string, levels int) []CandidateLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	if levels <= 0 {
		levels = DefaultContainerLevels
	}

	for _, selector := range resultSelectors {
		links := doc.Find(selector)
		if links.Length() == 0 {
			continue
		}

		var out []CandidateLink
		index := map[string]int{}
		links.Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			pageURL, ok := utils.NormalizeCompanyURL(href, base)
			if !ok {
				return
			}
			text := scraper.CleanText(a.Text())
			if i, seen := index[pageURL]; seen {
				if out[i].AnchorText == "" {
					out[i].AnchorText = text
				}
				return
			}
			ctx := containerTexts(a, pageURL, base, levels)
			index[pageURL] = len(out)
			out = append(out, CandidateLink{
				URL:        pageURL,
				AnchorText: text,
				DOMContext: lastOf(ctx),
				Levels:     ctx,
			})
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// containerTexts returns the text of each enclosing element, innermost
// first, up to levels ancestors. The walk stops below the first element
// that also holds another company's link so one result cannot borrow
// the location of its neighbour.
func containerTexts(a *goquery.Selection, pageURL, base string, levels int) []string {
	var texts []string
	node := a
	for i := 0; i < levels; i++ {
		node = node.Parent()
		if node.Length() == 0 || goquery.NodeName(node) == "body" {
			break
		}
		if holdsOtherCompany(node, pageURL, base) {
			break
		}
		texts = append(texts, scraper.CleanText(node.Text()))
	}
	return texts
}

func holdsOtherCompany(node *goquery.Selection, pageURL, base string) bool {
	other := false
	node.Find(`a[href*="/company/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if u, ok := utils.NormalizeCompanyURL(href, base); ok && u != pageURL {
			other = true
		}
		return !other
	})
	return other
}

func lastOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// Disambiguate picks the first of the leading limit candidates whose
// surrounding text agrees with the city or state hint. The bool is false
// when nothing matched and the first candidate was returned as a default.
func Disambiguate(candidates []CandidateLink, city, state string, limit int) (CandidateLink, match.LocationMatch, bool) {
	if len(candidates) == 0 {
		return CandidateLink{}, match.NotApplicable, false
	}
	if strings.TrimSpace(city) == "" && strings.TrimSpace(state) == "" {
		return candidates[0], match.NotApplicable, true
	}
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	for _, c := range candidates[:limit] {
		texts := c.Levels
		if len(texts) == 0 {
			texts = []string{c.DOMContext}
		}
		for _, text := range texts {
			switch grade := match.Location(city, state, text); grade {
			case match.FullMatch, match.PartialMatch:
				return c, grade, true
			}
		}
	}
	return candidates[0], match.Mismatch, false
}
