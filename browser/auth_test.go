package browser_test

import (
	"context"
	"testing"

	"companyresolver/browser"
	"companyresolver/browser/browsertest"
	"companyresolver/config"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	siteBase  = "https://www.linkedin.com"
	loginForm = `<form><input id="username"><input id="password"><button type="submit">Sign in</button></form>`
)

func newAuthenticator(t *testing.T) *browser.Authenticator {
	logger, _ := test.NewNullLogger()
	return browser.NewAuthenticator(siteBase, browser.NoDelayPolicy{}, browser.NewSnapshotter(t.TempDir(), logger), logger)
}

func TestAuthenticateWithPassword(t *testing.T) {
	page := browsertest.NewPage().
		Route(siteBase+"/login", browsertest.Response{HTML: loginForm}).
		OnClick(`button[type="submit"]`, browsertest.Response{URL: siteBase + "/feed/", HTML: "<main>feed</main>"})

	state, err := newAuthenticator(t).Authenticate(context.Background(), page, config.Credentials{Username: "ops@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, browser.Authenticated, state)
	assert.Equal(t, "ops@example.com", page.Typed["#username"])
	assert.Equal(t, "s3cret", page.Typed["#password"])
	assert.Contains(t, page.Clicked, "#password", "no-delay policy clicks instead of tabbing")
}

func TestAuthenticateCheckpoint(t *testing.T) {
	page := browsertest.NewPage().
		Route(siteBase+"/login", browsertest.Response{HTML: loginForm}).
		OnClick(`button[type="submit"]`, browsertest.Response{
			URL:  siteBase + "/checkpoint/challenge/abc",
			HTML: "<h1>Let's do a quick security verification</h1>",
		})
	auth := newAuthenticator(t)

	state, err := auth.Authenticate(context.Background(), page, config.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, browser.AwaitingManualVerification, state)

	_, err = auth.ResumeAfterManualVerification(context.Background(), page)
	var loginErr *browser.LoginError
	require.ErrorAs(t, err, &loginErr)

	page.Show(siteBase+"/feed/", "<main>feed</main>")
	state, err = auth.ResumeAfterManualVerification(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, browser.Authenticated, state)
}

func TestAuthenticateMissingForm(t *testing.T) {
	page := browsertest.NewPage().Route(siteBase+"/login", browsertest.Response{HTML: "<p>maintenance</p>"})

	_, err := newAuthenticator(t).Authenticate(context.Background(), page, config.Credentials{Username: "u", Password: "p"})
	var loginErr *browser.LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Contains(t, err.Error(), "sign-in form not found")
}

func TestAuthenticateRejectedCredentials(t *testing.T) {
	page := browsertest.NewPage().
		Route(siteBase+"/login", browsertest.Response{HTML: loginForm}).
		OnClick(`button[type="submit"]`, browsertest.Response{URL: siteBase + "/home", HTML: "<p>hello</p>"})

	_, err := newAuthenticator(t).Authenticate(context.Background(), page, config.Credentials{Username: "u", Password: "p"})
	var loginErr *browser.LoginError
	require.ErrorAs(t, err, &loginErr)
}

func TestAuthenticateWithCookie(t *testing.T) {
	page := browsertest.NewPage().Route(siteBase+"/feed/", browsertest.Response{HTML: "<main>feed</main>"})

	state, err := newAuthenticator(t).Authenticate(context.Background(), page, config.Credentials{SessionCookie: "AQED"})
	require.NoError(t, err)
	assert.Equal(t, browser.Authenticated, state)
	assert.Equal(t, "AQED", page.Cookies["li_at"])
}

func TestAuthenticateAnonymous(t *testing.T) {
	page := browsertest.NewPage()

	state, err := newAuthenticator(t).Authenticate(context.Background(), page, config.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, browser.AwaitingManualVerification, state)
	assert.Equal(t, []string{siteBase + "/login"}, page.Visited)
}

func TestURLClassifiers(t *testing.T) {
	assert.True(t, browser.IsLoginRedirect("https://www.linkedin.com/uas/login?session_redirect=x"))
	assert.True(t, browser.IsLoginRedirect("https://www.linkedin.com/authwall?trk=x"))
	assert.False(t, browser.IsLoginRedirect("https://www.linkedin.com/company/acme/about/"))
	assert.True(t, browser.InMemberArea("https://www.linkedin.com/feed/"))
	assert.True(t, browser.IsCheckpoint("https://www.linkedin.com/x", "Please complete this CAPTCHA"))
	assert.Equal(t, ".linkedin.com", browser.CookieDomain("https://www.linkedin.com"))
}
