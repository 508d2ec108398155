package browser

import (
	"context"
	"strings"

	"companyresolver/config"
	"companyresolver/utils"

	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"
)

// AuthState is the outcome of an authentication attempt that did not
// fail outright.
type AuthState string

const (
	Authenticated              AuthState = "authenticated"
	AwaitingManualVerification AuthState = "awaiting_manual_verification"
)

const checkpointPolls = 3

var (
	checkpointURLMarkers  = []string{"checkpoint", "login", "challenge", "authwall"}
	checkpointTextMarkers = []string{"captcha", "verify your identity", "security verification"}
	memberAreaMarkers     = []string{"/feed", "/mynetwork", "/in/"}
)

const (
	usernameField = "#username"
	passwordField = "#password"
	submitButton  = `button[type="submit"]`
)

// ManualVerifier blocks until a person has dealt with a verification
// challenge in the browser window.
type ManualVerifier interface {
	AwaitVerification(ctx context.Context, pageURL string) error
}

// Authenticator signs a session in.
type Authenticator struct {
	baseURL string
	policy  Policy
	snap    *Snapshotter
	log     logrus.FieldLogger
}

func NewAuthenticator(baseURL string, policy Policy, snap *Snapshotter, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{baseURL: baseURL, policy: policy, snap: snap, log: log}
}

// IsLoginRedirect reports whether url is a sign-in wall.
func IsLoginRedirect(url string) bool {
	return strings.Contains(url, "/login") || strings.Contains(url, "uas/login") || strings.Contains(url, "/authwall")
}

// InMemberArea reports whether url is a page only signed-in members see.
func InMemberArea(url string) bool {
	for _, m := range memberAreaMarkers {
		if strings.Contains(url, m) {
			return true
		}
	}
	return false
}

// IsCheckpoint reports whether the page is a verification challenge.
func IsCheckpoint(url, html string) bool {
	for _, m := range checkpointURLMarkers {
		if strings.Contains(url, m) {
			return true
		}
	}
	lower := strings.ToLower(html)
	for _, m := range checkpointTextMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Authenticate signs in with a session cookie or a username and
// password. Without either it opens the sign-in page and reports
// AwaitingManualVerification so a person may sign in by hand.
func (a *Authenticator) Authenticate(ctx context.Context, page Page, creds config.Credentials) (AuthState, error) {
	log := a.log.WithField("credentials", creds.String())

	if creds.SessionCookie != "" {
		ok, err := a.cookieLogin(ctx, page, creds.SessionCookie)
		if err != nil {
			return "", err
		}
		if ok {
			log.Info("signed in with session cookie")
			return Authenticated, nil
		}
		log.Warn("session cookie rejected")
	}

	if !creds.HasLogin() {
		if err := LoadNaturally(ctx, page, a.policy, utils.JoinURL(a.baseURL, "/login")); err != nil {
			return "", &LoginError{Message: "open sign-in page", Cause: err}
		}
		log.Info("no usable credentials, waiting for manual sign-in")
		return AwaitingManualVerification, nil
	}

	if err := a.submitLogin(ctx, page, creds); err != nil {
		return "", err
	}

	for poll := 1; poll <= checkpointPolls; poll++ {
		loc, err := page.Location(ctx)
		if err != nil {
			return "", &LoginError{Message: "read location after submit", Cause: err}
		}
		if InMemberArea(loc) {
			log.Info("signed in")
			_ = HumanScroll(ctx, page, a.policy)
			return Authenticated, nil
		}
		html, _ := page.HTML(ctx)
		if IsCheckpoint(loc, html) {
			log.WithField("url", loc).Warn("verification checkpoint detected")
			if _, err := a.snap.Capture(ctx, page, "login_checkpoint"); err != nil {
				log.WithError(err).Warn("checkpoint snapshot")
			}
			return AwaitingManualVerification, nil
		}
		if err := Pace(ctx, a.policy, PausePageSettle); err != nil {
			return "", &LoginError{Message: "interrupted", Cause: err}
		}
	}
	return "", &LoginError{Message: "credentials were not accepted"}
}

// ResumeAfterManualVerification checks whether the person finished the
// challenge and the session now sits in the member area.
func (a *Authenticator) ResumeAfterManualVerification(ctx context.Context, page Page) (AuthState, error) {
	loc, err := page.Location(ctx)
	if err != nil {
		return "", &LoginError{Message: "read location after verification", Cause: err}
	}
	if InMemberArea(loc) {
		a.log.Info("manual verification completed")
		return Authenticated, nil
	}
	return "", &LoginError{Message: "manual verification not completed: still at " + loc}
}

func (a *Authenticator) cookieLogin(ctx context.Context, page Page, cookie string) (bool, error) {
	if err := page.SetCookie(ctx, "li_at", cookie, CookieDomain(a.baseURL)); err != nil {
		return false, &LoginError{Message: "set session cookie", Cause: err}
	}
	if err := LoadNaturally(ctx, page, a.policy, utils.JoinURL(a.baseURL, "/feed/")); err != nil {
		return false, &LoginError{Message: "open feed", Cause: err}
	}
	loc, err := page.Location(ctx)
	if err != nil {
		return false, &LoginError{Message: "read location", Cause: err}
	}
	return InMemberArea(loc), nil
}

func (a *Authenticator) submitLogin(ctx context.Context, page Page, creds config.Credentials) error {
	fail := func(msg string, err error) error {
		return &LoginError{Message: msg, Cause: err}
	}

	if err := page.Navigate(ctx, utils.JoinURL(a.baseURL, "/login")); err != nil {
		return fail("open sign-in page", err)
	}
	if err := Pace(ctx, a.policy, PauseLoginPage); err != nil {
		return fail("interrupted", err)
	}
	_ = RandomPointer(ctx, page, a.policy)

	if err := page.WaitVisible(ctx, usernameField); err != nil {
		return fail("sign-in form not found", err)
	}

	_ = RandomPointer(ctx, page, a.policy)
	if err := page.Click(ctx, usernameField); err != nil {
		return fail("focus username", err)
	}
	if err := Pace(ctx, a.policy, PauseFieldFocus); err != nil {
		return fail("interrupted", err)
	}
	if err := TypeLikeHuman(ctx, page, a.policy, usernameField, creds.Username); err != nil {
		return fail("type username", err)
	}

	if a.policy.Roll(EventTabToNextField) {
		if err := page.Type(ctx, usernameField, kb.Tab); err != nil {
			return fail("tab to password", err)
		}
	} else {
		_ = RandomPointer(ctx, page, a.policy)
		if err := page.Click(ctx, passwordField); err != nil {
			return fail("focus password", err)
		}
	}
	if err := Pace(ctx, a.policy, PauseFieldFocus); err != nil {
		return fail("interrupted", err)
	}
	if err := TypeLikeHuman(ctx, page, a.policy, passwordField, creds.Password); err != nil {
		return fail("type password", err)
	}

	_ = RandomPointer(ctx, page, a.policy)
	if err := Pace(ctx, a.policy, PauseBeforeSubmit); err != nil {
		return fail("interrupted", err)
	}
	if err := page.Click(ctx, submitButton); err != nil {
		return fail("submit sign-in form", err)
	}
	if err := Pace(ctx, a.policy, PauseAfterSubmit); err != nil {
		return fail("interrupted", err)
	}
	return nil
}
