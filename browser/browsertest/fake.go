// Package browsertest provides scriptable stand-ins for a browser tab
// and launcher.
package browsertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"companyresolver/browser"
)

// Response is what the fake page shows after a navigation or click.
type Response struct {
	// URL is the location after any redirect. Empty means the requested
	// address.
	URL  string
	HTML string
	Err  error
}

// Page is an in-memory browser.Page. Routes are matched exactly first,
// then by the longest registered prefix.
type Page struct {
	mu       sync.Mutex
	routes   map[string]Response
	clicks   map[string]Response
	fallback Response

	current string
	html    string

	Visited []string
	Typed   map[string]string
	Clicked []string
	Scrolls []int
	Moves   int
	Cookies map[string]string
}

func NewPage() *Page {
	return &Page{
		routes:   map[string]Response{},
		clicks:   map[string]Response{},
		fallback: Response{HTML: "<html><body></body></html>"},
		Typed:    map[string]string{},
		Cookies:  map[string]string{},
	}
}

// Route registers the response for url.
func (p *Page) Route(url string, r Response) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = r
	return p
}

// OnClick registers a page change triggered by clicking selector.
func (p *Page) OnClick(selector string, r Response) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks[selector] = r
	return p
}

// Fallback sets the response for unrouted addresses.
func (p *Page) Fallback(r Response) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = r
	return p
}

// Show replaces the current page without a navigation.
func (p *Page) Show(url, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current, p.html = url, html
}

func (p *Page) lookup(url string) Response {
	if r, ok := p.routes[url]; ok {
		return r
	}
	best, found := "", false
	for prefix := range p.routes {
		if strings.HasPrefix(url, prefix) && len(prefix) > len(best) {
			best, found = prefix, true
		}
	}
	if found {
		return p.routes[best]
	}
	return p.fallback
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return &browser.NavigationError{URL: url, Message: "cancelled", Cause: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Visited = append(p.Visited, url)
	r := p.lookup(url)
	if r.Err != nil {
		return &browser.NavigationError{URL: url, Message: "page load failed", Cause: r.Err}
	}
	p.current = url
	if r.URL != "" {
		p.current = r.URL
	}
	p.html = r.HTML
	return nil
}

func (p *Page) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *Page) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) ScrollBy(_ context.Context, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls = append(p.Scrolls, dy)
	return nil
}

func (p *Page) MoveMouse(context.Context, float64, float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Moves++
	return nil
}

func (p *Page) Viewport(context.Context) (int, int, error) {
	return 1280, 800, nil
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicked = append(p.Clicked, selector)
	if r, ok := p.clicks[selector]; ok {
		if r.Err != nil {
			return r.Err
		}
		if r.URL != "" {
			p.current = r.URL
		}
		p.html = r.HTML
	}
	return nil
}

func (p *Page) Type(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Typed[selector] += text
	return nil
}

func (p *Page) WaitVisible(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !strings.Contains(p.html, strings.TrimPrefix(selector, "#")) {
		return &browser.NavigationError{URL: p.current, Message: "element never became visible: " + selector}
	}
	return nil
}

func (p *Page) Screenshot(context.Context) ([]byte, error) {
	return []byte("\x89PNG fake"), nil
}

func (p *Page) SetCookie(_ context.Context, name, value, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cookies[name] = value
	return nil
}

// VisitCount returns how often url was navigated to.
func (p *Page) VisitCount(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, v := range p.Visited {
		if v == url {
			n++
		}
	}
	return n
}

// Launcher hands out pages and counts launches and closes.
type Launcher struct {
	mu sync.Mutex
	// FailFirst makes that many launches fail before any succeeds.
	FailFirst int
	Err       error
	// NewPage builds the page for each successful launch.
	NewPage func() browser.Page

	Launches int
	Closes   int
	Options  []browser.LaunchOptions
	// Started holds the time of every launch attempt.
	Started []time.Time
}

func (l *Launcher) Launch(_ context.Context, opts browser.LaunchOptions) (browser.Page, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Launches++
	l.Options = append(l.Options, opts)
	l.Started = append(l.Started, time.Now())
	if l.Launches <= l.FailFirst {
		if l.Err == nil {
			return nil, nil, errors.New("browser failed to start")
		}
		return nil, nil, l.Err
	}
	var page browser.Page
	if l.NewPage != nil {
		page = l.NewPage()
	} else {
		page = NewPage()
	}
	return page, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.Closes++
	}, nil
}

// CloseCount returns how many launched browsers were closed.
func (l *Launcher) CloseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Closes
}
