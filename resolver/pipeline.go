package resolver

import (
	"context"
	"strings"

	"companyresolver/browser"
	"companyresolver/config"
	"companyresolver/match"
	"companyresolver/scraper"
	"companyresolver/search"
	"companyresolver/utils"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Pipeline states, as they appear in the "state" log field.
const (
	stateDirectGuess    = "direct_guess"
	stateValidating     = "validating"
	stateNeedsFallback  = "needs_fallback"
	stateFallbackSearch = "fallback_search"
	stateDisambiguating = "disambiguating"
	stateNextQuery      = "next_fallback_query"
	stateConfirmed      = "confirmed"
	stateExhausted      = "exhausted"
)

// Extractor reads company details from page markup.
type Extractor interface {
	Extract(html string) scraper.Details
}

// SignInFunc authenticates page again after a sign-in redirect.
type SignInFunc func(ctx context.Context, page browser.Page) error

// Pipeline resolves one request on a page it does not own.
type Pipeline struct {
	baseURL   string
	disamb    config.Disambiguation
	policy    browser.Policy
	extractor Extractor
	signIn    SignInFunc
	snap      *browser.Snapshotter
	log       logrus.FieldLogger
}

// NewPipeline builds a Pipeline. signIn and snap may be nil.
func NewPipeline(cfg config.Config, policy browser.Policy, extractor Extractor, signIn SignInFunc, snap *browser.Snapshotter, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		baseURL:   cfg.Site.BaseURL,
		disamb:    cfg.Disambiguation,
		policy:    policy,
		extractor: extractor,
		signIn:    signIn,
		snap:      snap,
		log:       log,
	}
}

// resolution is the mutable state of a single Resolve call.
type resolution struct {
	page     browser.Page
	req      Request
	reauthed bool
	log      logrus.FieldLogger
}

func (r *resolution) enter(state string) logrus.FieldLogger {
	l := r.log.WithField("state", state)
	l.Debug("pipeline transition")
	return l
}

// Resolve tries the guessed company page first and falls back to the
// site search, one query at a time from most to least specific.
func (p *Pipeline) Resolve(ctx context.Context, page browser.Page, req Request) (*Profile, error) {
	r := &resolution{
		page: page,
		req:  req,
		log:  p.log.WithField("business", req.BusinessName),
	}

	profile, err := p.directGuess(ctx, r)
	if err != nil || profile != nil {
		return profile, err
	}
	r.enter(stateNeedsFallback)
	return p.fallback(ctx, r)
}

func (p *Pipeline) directGuess(ctx context.Context, r *resolution) (*Profile, error) {
	slug := match.Slugify(r.req.BusinessName)
	if slug == "" {
		return nil, nil
	}
	target := utils.JoinURL(p.baseURL, "/company/"+slug+"/about/")
	log := r.enter(stateDirectGuess).WithField("url", target)

	loc, err := p.open(ctx, r, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "direct guess")
		}
		log.WithError(err).Info("direct guess did not load")
		return nil, nil
	}
	if strings.Contains(loc, "/company/unavailable") {
		log.Info("direct guess is an unavailable placeholder")
		return nil, nil
	}

	log = r.enter(stateValidating).WithField("url", loc)
	html, err := r.page.HTML(ctx)
	if err != nil {
		log.WithError(err).Info("direct guess markup unreadable")
		return nil, nil
	}
	details := p.extractor.Extract(html)
	if details.CoreEmpty() {
		log.Info("direct guess has no company details")
		return nil, nil
	}

	pageURL, ok := utils.NormalizeCompanyURL(loc, p.baseURL)
	if !ok {
		pageURL, _ = utils.NormalizeCompanyURL(target, p.baseURL)
	}
	grade := match.NotApplicable
	if r.req.HasLocation() {
		grade = match.Location(r.req.City, r.req.State, found(details.Headquarters))
	}
	profile := newProfile(pageURL, details, r.req, grade)
	profile.Source = SourceDirect
	r.enter(stateConfirmed).WithField("url", pageURL).Info("resolved by direct guess")
	return profile, nil
}

func (p *Pipeline) fallback(ctx context.Context, r *resolution) (*Profile, error) {
	queries := match.SegmentBusinessName(r.req.BusinessName)
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fallback search")
		}
		log := r.enter(stateFallbackSearch).WithFields(logrus.Fields{"query": query, "level": i + 1})

		profile, err := p.tryQuery(ctx, r, query, log)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "fallback search")
			}
			log.WithError(err).Info("query abandoned")
		}
		if profile != nil {
			profile.Query = query
			profile.QueryLevel = i + 1
			r.enter(stateConfirmed).WithFields(logrus.Fields{"url": profile.PageURL, "query": query}).Info("resolved by search")
			return profile, nil
		}
		r.enter(stateNextQuery)
	}

	r.enter(stateExhausted).WithField("queries", len(queries)).Warn("no resolution after fallback")
	return nil, &NoResolutionError{BusinessName: r.req.BusinessName, Queries: queries}
}

// tryQuery runs one search query. A nil profile with a nil error means
// the query produced nothing usable.
func (p *Pipeline) tryQuery(ctx context.Context, r *resolution, query string, log logrus.FieldLogger) (*Profile, error) {
	resultsURL := search.ResultsURL(p.baseURL, query)
	if _, err := p.open(ctx, r, resultsURL); err != nil {
		return nil, err
	}
	html, err := r.page.HTML(ctx)
	if err != nil {
		return nil, &browser.NavigationError{URL: resultsURL, Message: "read results", Cause: err}
	}
	if search.HasNoResults(html) {
		log.Info("search returned no results")
		return nil, nil
	}
	candidates := search.Candidates(html, p.baseURL, p.disamb.ContainerLevels)
	if len(candidates) == 0 {
		log.Info("search page had no company links")
		return nil, nil
	}
	if err := browser.Pace(ctx, p.policy, browser.PauseResultsGlance); err != nil {
		return nil, err
	}

	log = r.enter(stateDisambiguating).WithField("candidates", len(candidates))
	picked, grade, matched := search.Disambiguate(candidates, r.req.City, r.req.State, p.disamb.CandidateLimit)
	log = log.WithFields(logrus.Fields{"url": picked.URL, "location_match": grade})
	if !matched {
		log.Info("no candidate matched the location, using the first result")
	}

	about := utils.AboutURL(picked.URL)
	if _, err := p.open(ctx, r, about); err != nil {
		p.capture(ctx, r, "candidate_navigation")
		return nil, err
	}
	if err := browser.HumanScroll(ctx, r.page, p.policy); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	markup, err := r.page.HTML(ctx)
	if err != nil {
		return nil, &browser.NavigationError{URL: about, Message: "read candidate page", Cause: err}
	}
	details := p.extractor.Extract(markup)
	if details.CoreEmpty() {
		log.Info("candidate page has no company details")
		p.capture(ctx, r, "empty_candidate")
		return nil, nil
	}

	profile := newProfile(picked.URL, details, r.req, grade)
	profile.Source = SourceSearch
	if !matched && r.req.HasLocation() {
		// The snippet did not mention the location; the page itself may.
		if hq := found(details.Headquarters); hq != "" {
			profile.LocationMatch = match.Location(r.req.City, r.req.State, hq)
		}
		if p.disamb.StrictDefault && profile.LocationMatch == match.Mismatch && profile.DomainMatch != match.DomainMatched {
			log.Info("default candidate rejected in strict mode")
			return nil, nil
		}
	}
	return profile, nil
}

// open loads target like a person would and handles a sign-in redirect by
// authenticating again, once per resolution, and retrying the load.
func (p *Pipeline) open(ctx context.Context, r *resolution, target string) (string, error) {
	for {
		if err := browser.LoadNaturally(ctx, r.page, p.policy, target); err != nil {
			return "", err
		}
		if err := browser.Interact(ctx, r.page, p.policy); err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		loc, err := r.page.Location(ctx)
		if err != nil {
			return "", &browser.NavigationError{URL: target, Message: "read location", Cause: err}
		}
		if !browser.IsLoginRedirect(loc) {
			return loc, nil
		}
		if r.reauthed || p.signIn == nil {
			return "", &browser.NavigationError{URL: target, Message: "redirected to sign-in"}
		}
		r.reauthed = true
		r.log.WithField("url", loc).Warn("redirected to sign-in, authenticating again")
		if err := p.signIn(ctx, r.page); err != nil {
			return "", &browser.NavigationError{URL: target, Message: "authenticate again", Cause: err}
		}
	}
}

func (p *Pipeline) capture(ctx context.Context, r *resolution, label string) {
	if _, err := p.snap.Capture(ctx, r.page, label); err != nil {
		r.log.WithError(err).Warn("snapshot")
	}
}
