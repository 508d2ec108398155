package browser

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"companyresolver/config"
)

// Pause names a kind of idle time between interactions.
type Pause int

const (
	PauseKeystroke Pause = iota
	PauseAfterTyping
	PauseFieldFocus
	PausePointerSettle
	PauseLoginPage
	PauseBeforeSubmit
	PauseAfterSubmit
	PausePageSettle
	PauseScrollStep
	PauseReading
	PauseIdle
	PauseResultsGlance
	PauseLaunchSettle
	PauseLaunchRetry
	PauseBetweenRequests
	PauseBetweenBatches
	PauseFeedWarmUp
	PauseAfterDetour
)

// Event names a randomized yes/no decision.
type Event int

const (
	EventScrollAfterLoad Event = iota
	EventScrollBack
	EventTabToNextField
	EventDetourBrowse
)

// Policy decides every timing and random choice made while driving a
// page, so tests can swap in NoDelayPolicy.
type Policy interface {
	Wait(p Pause) time.Duration
	Roll(e Event) bool
	// Intn returns a value in [min, max].
	Intn(min, max int) int
}

// RandomPolicy draws from the ranges in config.Interaction.
type RandomPolicy struct {
	cfg config.Interaction
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomPolicy(cfg config.Interaction) *RandomPolicy {
	return &RandomPolicy{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RandomPolicy) Wait(pause Pause) time.Duration {
	r := p.rangeFor(pause)
	if r.Max <= r.Min {
		return r.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + time.Duration(p.rnd.Int63n(int64(r.Max-r.Min)+1))
}

func (p *RandomPolicy) Roll(e Event) bool {
	var prob float64
	switch e {
	case EventScrollAfterLoad:
		prob = p.cfg.ScrollAfterLoad
	case EventScrollBack:
		prob = p.cfg.ScrollBack
	case EventTabToNextField:
		prob = p.cfg.TabToNextField
	case EventDetourBrowse:
		prob = p.cfg.DetourBrowse
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Float64() < prob
}

func (p *RandomPolicy) Intn(min, max int) int {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rnd.Intn(max-min+1)
}

func (p *RandomPolicy) rangeFor(pause Pause) config.Range {
	c := p.cfg
	switch pause {
	case PauseKeystroke:
		return c.Keystroke
	case PauseAfterTyping:
		return c.AfterTyping
	case PauseFieldFocus:
		return c.FieldFocus
	case PausePointerSettle:
		return c.PointerSettle
	case PauseLoginPage:
		return c.LoginPage
	case PauseBeforeSubmit:
		return c.BeforeSubmit
	case PauseAfterSubmit:
		return c.AfterSubmit
	case PausePageSettle:
		return c.PageSettle
	case PauseScrollStep:
		return c.ScrollStep
	case PauseReading:
		return c.Reading
	case PauseIdle:
		return c.Idle
	case PauseResultsGlance:
		return c.ResultsGlance
	case PauseLaunchSettle:
		return c.LaunchSettle
	case PauseLaunchRetry:
		return c.LaunchRetry
	case PauseBetweenRequests:
		return c.BetweenRequests
	case PauseBetweenBatches:
		return c.BetweenBatches
	case PauseFeedWarmUp:
		return c.FeedWarmUp
	case PauseAfterDetour:
		return c.AfterDetour
	}
	return config.Range{}
}

// NoDelayPolicy never waits, never rolls true and always picks the
// lowest value.
type NoDelayPolicy struct{}

func (NoDelayPolicy) Wait(Pause) time.Duration { return 0 }
func (NoDelayPolicy) Roll(Event) bool          { return false }
func (NoDelayPolicy) Intn(min, _ int) int      { return min }

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pace sleeps for a duration chosen by policy.
func Pace(ctx context.Context, policy Policy, p Pause) error {
	return Sleep(ctx, policy.Wait(p))
}

// LoadNaturally navigates to url and then behaves like a reader: a
// settle pause, an occasional short scroll down and back, and a reading
// pause.
func LoadNaturally(ctx context.Context, page Page, policy Policy, url string) error {
	if err := page.Navigate(ctx, url); err != nil {
		return err
	}
	if err := Pace(ctx, policy, PausePageSettle); err != nil {
		return err
	}
	if policy.Roll(EventScrollAfterLoad) {
		if err := page.ScrollBy(ctx, policy.Intn(100, 300)); err != nil {
			return err
		}
		if err := Pace(ctx, policy, PauseScrollStep); err != nil {
			return err
		}
	}
	if policy.Roll(EventScrollBack) {
		if err := page.ScrollBy(ctx, -policy.Intn(50, 100)); err != nil {
			return err
		}
	}
	return Pace(ctx, policy, PauseReading)
}

// HumanScroll scrolls a few uneven steps in one direction.
func HumanScroll(ctx context.Context, page Page, policy Policy) error {
	amount := policy.Intn(100, 300)
	if policy.Intn(0, 1) == 0 {
		amount = -amount
	}
	steps := policy.Intn(2, 5)
	for i := 0; i < steps; i++ {
		if err := page.ScrollBy(ctx, amount); err != nil {
			return err
		}
		if err := Pace(ctx, policy, PauseScrollStep); err != nil {
			return err
		}
	}
	return nil
}

// RandomPointer moves the mouse somewhere inside the viewport.
func RandomPointer(ctx context.Context, page Page, policy Policy) error {
	w, h, err := page.Viewport(ctx)
	if err != nil || w < 30 || h < 30 {
		w, h = 1280, 800
	}
	x := policy.Intn(10, w-10)
	y := policy.Intn(10, h-10)
	if err := page.MoveMouse(ctx, float64(x), float64(y)); err != nil {
		return err
	}
	return Pace(ctx, policy, PausePointerSettle)
}

// TypeLikeHuman sends text one character at a time with uneven gaps.
func TypeLikeHuman(ctx context.Context, page Page, policy Policy, selector, text string) error {
	for _, ch := range text {
		if err := Pace(ctx, policy, PauseKeystroke); err != nil {
			return err
		}
		if err := page.Type(ctx, selector, string(ch)); err != nil {
			return err
		}
	}
	return Pace(ctx, policy, PauseAfterTyping)
}

// Interact performs one weighted random gesture: scroll (40%), pointer
// move (30%), idle (20%) or nothing.
func Interact(ctx context.Context, page Page, policy Policy) error {
	switch roll := policy.Intn(0, 99); {
	case roll < 40:
		amount := policy.Intn(100, 600)
		if policy.Intn(0, 1) == 0 {
			amount = -amount
		}
		if err := page.ScrollBy(ctx, amount); err != nil {
			return err
		}
		return Pace(ctx, policy, PauseScrollStep)
	case roll < 70:
		return RandomPointer(ctx, page, policy)
	case roll < 90:
		return Pace(ctx, policy, PauseIdle)
	default:
		return nil
	}
}
