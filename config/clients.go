package config

import "strings"

// ClientProfile is one browser identity a session may present.
type ClientProfile struct {
	UserAgent      string // Full user agent string
	Platform       string // navigator.platform
	AcceptLanguage string // Accept-Language header
}

// ClientProfiles is the pool identities are drawn from when the
// configuration does not list its own user agents.
var ClientProfiles = map[string]ClientProfile{
	"chrome118-win": {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36", "Win32", "en-US,en;q=0.9"},
	"chrome119-win": {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", "Win32", "en-US,en;q=0.9"},
	"chrome118-mac": {"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36", "MacIntel", "en-US,en;q=0.9"},
	"edge117-win":   {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36 Edg/117.0.2045.47", "Win32", "en-US,en;q=0.9"},
	"chrome117-win": {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36", "Win32", "en-US,en;q=0.9"},
}

// ProfileFor returns the pooled profile with the given user agent, or a
// profile guessed from the string itself.
func ProfileFor(userAgent string) ClientProfile {
	for _, p := range ClientProfiles {
		if p.UserAgent == userAgent {
			return p
		}
	}
	platform := "Win32"
	switch {
	case strings.Contains(userAgent, "Macintosh"):
		platform = "MacIntel"
	case strings.Contains(userAgent, "Linux"):
		platform = "Linux x86_64"
	}
	return ClientProfile{UserAgent: userAgent, Platform: platform, AcceptLanguage: "en-US,en;q=0.9"}
}
