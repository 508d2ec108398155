package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPrefersCommas(t *testing.T) {
	parts, sep := Split("Smith & Jones - Consulting, Inc.")
	assert.Equal(t, ", ", sep)
	assert.Equal(t, []string{"smith & jones - consulting", "inc."}, parts)
}

func TestSplitDelimiterOrder(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		sep   string
	}{
		{"Acme Inc. North Branch", []string{"acme inc.", "north branch"}, ". "},
		{"Smith & Jones", []string{"smith", "jones"}, " & "},
		{"Alpha - Beta | Gamma", []string{"alpha", "beta | gamma"}, " - "},
		{"One Two Three Four Five", []string{"one two", "three four", "five"}, " "},
		{"Acme Robotics", []string{"acme robotics"}, ""},
		{"  Café  Olé ", []string{"cafe ole"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, sep := Split(tt.name)
			assert.Equal(t, tt.parts, parts)
			assert.Equal(t, tt.sep, sep)
		})
	}
}

func TestSegmentBusinessName(t *testing.T) {
	queries := SegmentBusinessName("Smith & Jones - Consulting, Inc.")
	require.NotEmpty(t, queries)
	assert.Equal(t, "smith & jones - consulting, inc.", queries[0])
	assert.Contains(t, queries, "smith & jones - consulting")
	assert.NotContains(t, queries, "inc.")
	assert.Equal(t, "smith", queries[len(queries)-1])

	assert.Equal(t, []string{"acme robotics", "acme"}, SegmentBusinessName("Acme Robotics"))
	assert.Nil(t, SegmentBusinessName("   "))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-robotics", Slugify("Acme Robotics"))
	assert.Equal(t, "smith--jones-llc", Slugify("Smith & Jones, LLC"))
	assert.Equal(t, "creme-brulee", Slugify("Crème Brûlée"))
}

func TestCityMatches(t *testing.T) {
	tests := []struct {
		expected, text string
		want           bool
	}{
		{"san fran", "headquartered in San Francisco, CA", true},
		{"Boston", "New York, NY", false},
		{"NYC", "New York, NY", true},
		{"Austin", "Acme Robotics · Robotics · Austin, TX", true},
		{"Austin", "Houston, TX", false},
		{"Fort Worth", "Ft. Worth, Texas", true},
		{"Portland", "Portlant, OR", true},
		{"", "Austin, TX", false},
		{"Austin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.expected+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, CityMatches(tt.expected, tt.text))
		})
	}
}

func TestStateMatches(t *testing.T) {
	tests := []struct {
		expected, text string
		want           bool
	}{
		{"CA", "Some Co, Los Angeles, California", true},
		{"NY", "Austin, TX", false},
		{"texas", "Austin, TX", true},
		{"TX", "austin, tx", true},
		{"IN", "based in Chicago, Illinois", false},
		{"New York", "Brooklyn, NY 11201", true},
		{"DC", "Washington, District of Columbia", true},
		{"T.", "Austin, TX", false},
		{"a(", "Austin, TX", false},
		{"zz", "Austin, zz", true},
	}
	for _, tt := range tests {
		t.Run(tt.expected+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, StateMatches(tt.expected, tt.text))
		})
	}
}

func TestStateMatchesOddInput(t *testing.T) {
	for _, state := range []string{"a(", "[x", "\\", "*", "T.", "(?"} {
		assert.NotPanics(t, func() { StateMatches(state, "Austin, TX") }, state)
	}
	assert.Equal(t, PartialMatch, Location("Austin", "a(", "Austin, TX"))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, NotApplicable, Location("", "", "Austin, TX"))
	assert.Equal(t, FullMatch, Location("Austin", "TX", "Austin, TX"))
	assert.Equal(t, PartialMatch, Location("Dallas", "TX", "Austin, TX"))
	assert.Equal(t, Mismatch, Location("Boston", "MA", "Austin, TX"))
	assert.Equal(t, FullMatch, Location("Austin", "", "Austin, Texas"))
}

func TestDomainOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://www.AcmeRobotics.com/", "acmerobotics.com"},
		{"http://acmerobotics.com/about", "acmerobotics.com"},
		{"www.acmerobotics.com", "acmerobotics.com"},
		{"https://shop.example.co.uk:8443/x", "shop.example.co.uk"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := DomainOf(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DomainOf("https://"+got), "idempotent")
		})
	}

	assert.Equal(t, "www.example.org", DomainOf("https://www.www.example.org"), "strips a single www.")
}

func TestCompareDomains(t *testing.T) {
	assert.Equal(t, DomainNotApplicable, CompareDomains("", "https://acmerobotics.com"))
	assert.Equal(t, DomainMatched, CompareDomains("https://acmerobotics.com", "http://www.acmerobotics.com/"))
	assert.Equal(t, DomainMismatch, CompareDomains("acmerobotics.com", "acme.io"))
	assert.Equal(t, DomainMismatch, CompareDomains("acmerobotics.com", ""))
	assert.True(t, DomainsMatch("ACME.com", "https://www.acme.com"))
}
