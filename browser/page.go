package browser

import (
	"context"

	"golang.org/x/time/rate"
)

// Page is the slice of a live browser tab the resolver drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	ScrollBy(ctx context.Context, dy int) error
	MoveMouse(ctx context.Context, x, y float64) error
	Viewport(ctx context.Context) (width, height int, err error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	WaitVisible(ctx context.Context, selector string) error
	Screenshot(ctx context.Context) ([]byte, error)
	SetCookie(ctx context.Context, name, value, domain string) error
}

// pacedPage throttles navigations so a session never loads pages faster
// than its limiter allows.
type pacedPage struct {
	Page
	limiter *rate.Limiter
}

func (p *pacedPage) Navigate(ctx context.Context, url string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &NavigationError{URL: url, Message: "navigation pacing", Cause: err}
	}
	return p.Page.Navigate(ctx, url)
}

func newLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perMinute/60), 1)
}
