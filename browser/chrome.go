package browser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"companyresolver/config"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

var stealthScripts = []string{
	"Object.defineProperty(navigator, 'webdriver', { get: () => undefined });",
	"Object.defineProperty(navigator, 'languages', { get: () => ['en-US','en'] });",
	"Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });",
	"window.chrome = window.chrome || {}; window.chrome.runtime = {};",
}

// LaunchOptions describes one browser process.
type LaunchOptions struct {
	Headless     bool
	ExecPath     string
	WorkspaceDir string
	Client       config.ClientProfile
	Width        int
	Height       int
	Timeout      time.Duration
	NavTimeout   time.Duration
}

// Launcher starts a browser and returns its first tab. The returned
// function closes the browser.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Page, func(), error)
}

// ChromeLauncher starts Chrome through chromedp with automation signals
// hidden from page scripts.
type ChromeLauncher struct{}

func (ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Page, func(), error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent(opts.Client.UserAgent),
		chromedp.UserDataDir(opts.WorkspaceDir),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	closeFn := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run starts the browser; it must not carry a deadline of
	// its own or the browser dies with it.
	stop := context.AfterFunc(ctx, closeFn)
	var timer *time.Timer
	if opts.Timeout > 0 {
		timer = time.AfterFunc(opts.Timeout, closeFn)
	}
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(c context.Context) error {
			return network.Enable().Do(c)
		}),
		chromedp.ActionFunc(func(c context.Context) error {
			return network.SetExtraHTTPHeaders(network.Headers{
				"Accept-Language": opts.Client.AcceptLanguage,
			}).Do(c)
		}),
		chromedp.ActionFunc(func(c context.Context) error {
			return emulation.SetAutomationOverride(false).Do(c)
		}),
		chromedp.ActionFunc(func(c context.Context) error {
			return emulation.SetUserAgentOverride(opts.Client.UserAgent).
				WithAcceptLanguage(opts.Client.AcceptLanguage).
				WithPlatform(opts.Client.Platform).
				Do(c)
		}),
		chromedp.ActionFunc(func(c context.Context) error {
			for _, script := range stealthScripts {
				if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(c); err != nil {
					return err
				}
			}
			return nil
		}),
		chromedp.Navigate("about:blank"),
	)
	stop()
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		closeFn()
		return nil, nil, eris.Wrap(err, "start chrome")
	}

	navTimeout := opts.NavTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &chromePage{tab: tabCtx, timeout: navTimeout}, closeFn, nil
}

type chromePage struct {
	tab     context.Context
	timeout time.Duration
}

// run executes actions on the tab, bounded by the page timeout and by
// the caller's context.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.tab, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, target string) error {
	if err := p.run(ctx, chromedp.Navigate(target)); err != nil {
		return &NavigationError{URL: target, Message: "page load failed", Cause: err}
	}
	return nil
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, eris.Wrap(err, "read location")
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, eris.Wrap(err, "read page markup")
}

func (p *chromePage) ScrollBy(ctx context.Context, dy int) error {
	return eris.Wrap(p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil)), "scroll")
}

func (p *chromePage) MoveMouse(ctx context.Context, x, y float64) error {
	return eris.Wrap(p.run(ctx, chromedp.MouseEvent(input.MouseMoved, x, y)), "move pointer")
}

func (p *chromePage) Viewport(ctx context.Context) (int, int, error) {
	var size []int
	if err := p.run(ctx, chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &size)); err != nil {
		return 0, 0, eris.Wrap(err, "read viewport")
	}
	if len(size) != 2 {
		return 0, 0, eris.New("unexpected viewport result")
	}
	return size[0], size[1], nil
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return &NavigationError{URL: selector, Message: "click failed", Cause: err}
	}
	return nil
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return eris.Wrapf(p.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery)), "type into %s", selector)
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return &NavigationError{URL: selector, Message: "element never became visible", Cause: err}
	}
	return nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, eris.Wrap(err, "capture screenshot")
}

func (p *chromePage) SetCookie(ctx context.Context, name, value, domain string) error {
	return eris.Wrap(p.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return network.SetCookie(name, value).
			WithDomain(domain).
			WithPath("/").
			WithSecure(true).
			WithHTTPOnly(true).
			Do(c)
	})), "set cookie")
}

// CookieDomain turns a site base URL into the cookie domain for it.
func CookieDomain(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if len(host) > 4 && host[:4] == "www." {
		host = host[4:]
	}
	return "." + host
}
