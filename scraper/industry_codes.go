package scraper

import (
	"regexp"
	"sync"
)

var industryCodePattern = regexp.MustCompile(`"name":"([^"]+)","entityUrn":"urn:li:fsd_industry:(\d+)"`)

// DefaultIndustryCodes seeds the catalog with codes commonly seen on
// company pages.
func DefaultIndustryCodes() map[string]string {
	return map[string]string{
		"4":   "Computer Software",
		"27":  "Retail",
		"33":  "Sports",
		"43":  "Financial Services",
		"96":  "Management Consulting",
		"105": "E-Learning",
		"118": "Information Technology & Services",
		"124": "Health, Wellness & Fitness",
		"132": "Environmental Health & Safety Training",
	}
}

// IndustryCatalog maps numeric industry codes to names. It grows as
// pages are read.
type IndustryCatalog struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewIndustryCatalog returns a catalog holding the defaults overlaid
// with seed.
func NewIndustryCatalog(seed map[string]string) *IndustryCatalog {
	names := DefaultIndustryCodes()
	for code, name := range seed {
		names[code] = name
	}
	return &IndustryCatalog{names: names}
}

// Lookup returns the name registered for code.
func (c *IndustryCatalog) Lookup(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[code]
	return name, ok
}

// Harvest records every code/name pair found in source and returns how
// many entries were added or changed.
func (c *IndustryCatalog) Harvest(source string) int {
	matches := industryCodePattern.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	changed := 0
	for _, m := range matches {
		name, code := m[1], m[2]
		if c.names[code] != name {
			c.names[code] = name
			changed++
		}
	}
	return changed
}

// Snapshot copies the current mapping.
func (c *IndustryCatalog) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.names))
	for code, name := range c.names {
		out[code] = name
	}
	return out
}
