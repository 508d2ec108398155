package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"companyresolver/browser"
	"companyresolver/browser/browsertest"
	"companyresolver/config"
	"companyresolver/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	mu      sync.Mutex
	state   browser.AuthState
	err     error
	resume  error
	calls   int
	resumed int
}

func (a *stubAuth) Authenticate(context.Context, browser.Page, config.Credentials) (browser.AuthState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	if a.state == "" {
		return browser.Authenticated, nil
	}
	return a.state, nil
}

func (a *stubAuth) ResumeAfterManualVerification(context.Context, browser.Page) (browser.AuthState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumed++
	if a.resume != nil {
		return "", a.resume
	}
	return browser.Authenticated, nil
}

type verifierFunc func(ctx context.Context, pageURL string) error

func (f verifierFunc) AwaitVerification(ctx context.Context, pageURL string) error {
	return f(ctx, pageURL)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(string) scraper.Details {
	panic("selector engine exploded")
}

// slowExtractor blocks for delay on the first n calls.
type slowExtractor struct {
	mu    sync.Mutex
	n     int
	delay time.Duration
	next  Extractor
}

func (e *slowExtractor) Extract(html string) scraper.Details {
	e.mu.Lock()
	slow := e.n > 0
	e.n--
	e.mu.Unlock()
	if slow {
		time.Sleep(e.delay)
	}
	return e.next.Extract(html)
}

type fixture struct {
	launcher *browsertest.Launcher
	auth     *stubAuth
	opts     Options
}

// acmeSite serves a direct page without details, one results page and the
// Austin candidate.
func acmeSite() browser.Page {
	return browsertest.NewPage().
		Route(directAbout, browsertest.Response{HTML: emptyPage}).
		Route(searchFull, browsertest.Response{HTML: resultsPage}).
		Route(searchShort, browsertest.Response{HTML: noResultPage}).
		Route(austinAbout, browsertest.Response{HTML: aboutPage("https://www.acmerobotics.com", "Austin, TX")}).
		Route(bostonAbout, browsertest.Response{HTML: aboutPage("https://acme-boston.com", "Boston, MA")})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	cfg.Browser.WorkDir = t.TempDir()
	cfg.Browser.LaunchAttempts = 2
	cfg.Browser.NavigationsPerMinute = 0
	cfg.Batch.ResolutionTimeout = 5 * time.Second

	log := nullLogger()
	launcher := &browsertest.Launcher{NewPage: acmeSite}
	auth := &stubAuth{}
	return &fixture{
		launcher: launcher,
		auth:     auth,
		opts: Options{
			Config:    cfg,
			Auth:      auth,
			Extractor: scraper.NewExtractor(log, nil),
			Policy:    browser.NoDelayPolicy{},
			Log:       log,
		},
	}
}

// service builds the Service from the fixture's current options.
func (f *fixture) service() *Service {
	f.opts.Sessions = browser.NewManager(f.opts.Config.Browser, browser.NoDelayPolicy{}, f.launcher, f.opts.Log)
	return NewService(f.opts)
}

func TestServiceResolveEndToEnd(t *testing.T) {
	f := newFixture(t)

	res := f.service().Resolve(context.Background(), acmeRequest())

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, "Acme Robotics", res.BusinessName)
	assert.Equal(t, base+"/company/acme-robotics-austin/", res.Profile.PageURL)
	assert.Equal(t, 1, f.launcher.Launches)
	assert.Equal(t, 1, f.launcher.CloseCount())
	assert.Equal(t, 1, f.auth.calls)
}

func TestServiceRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	for _, req := range []Request{
		{},
		{BusinessName: "Acme", Website: "not a website"},
	} {
		res := svc.Resolve(context.Background(), req)
		assert.False(t, res.OK())
		assert.Equal(t, KindInvalidRequest, res.ErrorKind)
	}
	assert.Zero(t, f.launcher.Launches)
}

func TestServiceAcceptsBareDomain(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.service().Validate(Request{BusinessName: "Acme", Website: "acmerobotics.com"}))
}

func TestServiceRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	f.opts.Extractor = panickingExtractor{}

	res := f.service().Resolve(context.Background(), acmeRequest())

	assert.False(t, res.OK())
	assert.Equal(t, KindInternal, res.ErrorKind)
	assert.Contains(t, res.Error, "selector engine exploded")
	assert.Equal(t, 1, f.launcher.CloseCount())
}

func TestServiceTimesOut(t *testing.T) {
	f := newFixture(t)
	f.opts.Config.Batch.ResolutionTimeout = 50 * time.Millisecond
	f.opts.Extractor = &slowExtractor{n: 1, delay: time.Second, next: f.opts.Extractor}

	start := time.Now()
	res := f.service().Resolve(context.Background(), acmeRequest())

	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, KindTimeout, res.ErrorKind)
	assert.Equal(t, 1, f.launcher.CloseCount())
}

func TestServiceKeepsSharedResolutionWhenOneCallerLeaves(t *testing.T) {
	f := newFixture(t)
	f.opts.Extractor = &slowExtractor{n: 1, delay: 300 * time.Millisecond, next: f.opts.Extractor}
	svc := f.service()

	leaving, leave := context.WithCancel(context.Background())
	defer leave()
	first := make(chan Result, 1)
	go func() { first <- svc.Resolve(leaving, acmeRequest()) }()

	time.Sleep(50 * time.Millisecond)
	second := make(chan Result, 1)
	go func() { second <- svc.Resolve(context.Background(), acmeRequest()) }()

	time.Sleep(50 * time.Millisecond)
	leave()

	gone := <-first
	assert.False(t, gone.OK())
	assert.Contains(t, gone.Error, "canceled")

	kept := <-second
	require.True(t, kept.OK(), kept.Error)
	assert.Equal(t, base+"/company/acme-robotics-austin/", kept.Profile.PageURL)
	assert.Equal(t, 1, f.launcher.Launches, "both callers shared one resolution")
}

func TestServiceReportsLaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.launcher.FailFirst = 10

	res := f.service().Resolve(context.Background(), acmeRequest())

	assert.Equal(t, KindSessionLaunch, res.ErrorKind)
	assert.Equal(t, 2, f.launcher.Launches)
}

func TestServiceReportsLoginFailure(t *testing.T) {
	f := newFixture(t)
	f.auth.err = &browser.LoginError{Message: "credentials were not accepted"}

	res := f.service().Resolve(context.Background(), acmeRequest())

	assert.Equal(t, KindLogin, res.ErrorKind)
	assert.Equal(t, 1, f.launcher.CloseCount())
}

func TestSignIn(t *testing.T) {
	t.Run("anonymous without verifier carries on", func(t *testing.T) {
		f := newFixture(t)
		f.auth.state = browser.AwaitingManualVerification
		assert.NoError(t, f.service().SignIn(context.Background(), browsertest.NewPage()))
	})

	t.Run("checkpoint without verifier fails", func(t *testing.T) {
		f := newFixture(t)
		f.auth.state = browser.AwaitingManualVerification
		f.opts.Credentials = config.Credentials{Username: "ops@example.com", Password: "secret"}

		err := f.service().SignIn(context.Background(), browsertest.NewPage())
		assert.Equal(t, KindLogin, Kind(err))
	})

	t.Run("verifier completes the checkpoint", func(t *testing.T) {
		f := newFixture(t)
		f.auth.state = browser.AwaitingManualVerification
		f.opts.Credentials = config.Credentials{Username: "ops@example.com", Password: "secret"}
		var seen string
		f.opts.Verifier = verifierFunc(func(_ context.Context, pageURL string) error {
			seen = pageURL
			return nil
		})
		page := browsertest.NewPage()
		page.Show(base+"/checkpoint/challenge/1", "<p>verify your identity</p>")

		require.NoError(t, f.service().SignIn(context.Background(), page))
		assert.Equal(t, base+"/checkpoint/challenge/1", seen)
		assert.Equal(t, 1, f.auth.resumed)
	})

	t.Run("verifier gives up", func(t *testing.T) {
		f := newFixture(t)
		f.auth.state = browser.AwaitingManualVerification
		f.opts.Verifier = verifierFunc(func(context.Context, string) error {
			return errors.New("operator declined")
		})

		err := f.service().SignIn(context.Background(), browsertest.NewPage())
		assert.Equal(t, KindLogin, Kind(err))
		assert.Zero(t, f.auth.resumed)
	})
}

func TestRequestKey(t *testing.T) {
	a := Request{BusinessName: "  ACME Robotics ", City: "NYC", State: "ny", Website: "https://www.acme.com/"}
	b := Request{BusinessName: "acme robotics", City: "new york", State: "NY", Website: "acme.com"}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Request{BusinessName: "acme robotics"}.Key())
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&browser.SessionLaunchError{Attempts: 3}, KindSessionLaunch},
		{&browser.WorkspaceBusyError{Workspace: "/tmp/p"}, KindSessionBusy},
		{&browser.LoginError{Message: "x"}, KindLogin},
		{&browser.NavigationError{URL: "u", Message: "x"}, KindNavigation},
		{&NoResolutionError{BusinessName: "x"}, KindNoResolution},
		{context.DeadlineExceeded, KindTimeout},
		{&InternalError{Value: "boom"}, KindInternal},
		{errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestServiceAcquireHoldsSessionSlot(t *testing.T) {
	f := newFixture(t)
	f.opts.Config.Server.MaxSessions = 1
	svc := f.service()

	held, err := svc.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.Acquire(ctx)
	require.Error(t, err)
	assert.Equal(t, KindTimeout, Kind(err))
	assert.Equal(t, 1, f.launcher.Launches, "no browser while every slot is taken")

	require.NoError(t, held.Release())
	next, err := svc.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, next.Release())
}
