package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var yearPattern = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)

// readDefinitionList maps dt/dd label pairs onto details.
func readDefinitionList(doc *goquery.Document, details *Details) {
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextAllFiltered("dd").First()
		if dd.Length() == 0 {
			return
		}
		label := strings.ToLower(CleanText(dt.Text()))
		value := CleanText(dd.Text())
		if value == "" {
			return
		}

		switch {
		case strings.Contains(label, "website"):
			if website := websiteValue(dd, value); website != "" {
				details.Website = website
			}
		case strings.Contains(label, "company size"):
			details.CompanySize = value
		case strings.Contains(label, "founded"):
			details.Founded = value
		case strings.Contains(label, "specialties"):
			details.Specialties = value
		case strings.Contains(label, "industry"):
			details.Industry = value
		case strings.Contains(label, "headquarters"):
			if !Found(details.Headquarters) {
				setHeadquarters(details, value)
			}
		}
	})
}

func websiteValue(dd *goquery.Selection, text string) string {
	if strings.HasPrefix(text, "http") {
		return text
	}
	href, ok := dd.Find("a[href]").First().Attr("href")
	if ok && strings.HasPrefix(href, "http") && !strings.Contains(href, "linkedin.com") {
		return href
	}
	return ""
}

// readHeadquarters prefers the dedicated location card over a dt/dd pair.
func readHeadquarters(doc *goquery.Document, details *Details) {
	block := doc.Find("div.org-location-card p").First()
	if block.Length() == 0 {
		return
	}
	if hq := CleanText(block.Text()); hq != "" {
		setHeadquarters(details, hq)
	}
}

func setHeadquarters(details *Details, hq string) {
	details.Headquarters = hq

	var parts []string
	for _, p := range strings.Split(hq, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 1 {
		details.HQCity = parts[0]
	}
	if len(parts) >= 2 {
		details.HQState = parts[1]
	}
}

// FoundedYear pulls a four digit year out of a "founded" value.
func FoundedYear(text string) (int, bool) {
	m := yearPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}
