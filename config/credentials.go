package config

import (
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this tool's secrets in the OS keychain.
const KeyringService = "companyresolver"

// Credentials are what the session manager logs in with. All fields may
// be empty, in which case resolution runs anonymously.
type Credentials struct {
	Username      string
	Password      string
	SessionCookie string
}

// HasLogin reports whether a username/password pair is present.
func (c Credentials) HasLogin() bool {
	return c.Username != "" && c.Password != ""
}

// Anonymous reports whether there is nothing to authenticate with.
func (c Credentials) Anonymous() bool {
	return !c.HasLogin() && c.SessionCookie == ""
}

// String never prints secrets.
func (c Credentials) String() string {
	switch {
	case c.HasLogin():
		return "login:" + c.Username
	case c.SessionCookie != "":
		return "cookie"
	default:
		return "anonymous"
	}
}

var keyringGet = keyring.Get

// LoadCredentials reads credentials from the environment. A username
// without a password falls back to the keychain entry for that user.
func LoadCredentials() Credentials {
	c := Credentials{
		Username:      strings.TrimSpace(os.Getenv("LINKEDIN_USERNAME")),
		Password:      os.Getenv("LINKEDIN_PASSWORD"),
		SessionCookie: strings.TrimSpace(os.Getenv("LINKEDIN_SESSION_COOKIE")),
	}
	if c.Username != "" && c.Password == "" {
		if pw, err := keyringGet(KeyringService, c.Username); err == nil && strings.TrimSpace(pw) != "" {
			c.Password = pw
		}
	}
	return c
}
