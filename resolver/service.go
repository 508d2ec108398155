package resolver

import (
	"context"
	"time"

	"companyresolver/browser"
	"companyresolver/cache"
	"companyresolver/config"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const cachePrefix = "company-profile:"

// Authenticator signs a page in. browser.Authenticator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, page browser.Page, creds config.Credentials) (browser.AuthState, error)
	ResumeAfterManualVerification(ctx context.Context, page browser.Page) (browser.AuthState, error)
}

// Options wires a Service. Verifier, Cache and Snapshots are optional.
type Options struct {
	Config      config.Config
	Credentials config.Credentials
	Sessions    *browser.Manager
	Auth        Authenticator
	Verifier    browser.ManualVerifier
	Extractor   Extractor
	Policy      browser.Policy
	Snapshots   *browser.Snapshotter
	Cache       cache.Client
	Log         logrus.FieldLogger
}

// Service resolves requests, each on its own freshly launched session.
type Service struct {
	cfg      config.Config
	creds    config.Credentials
	sessions *browser.Manager
	auth     Authenticator
	verifier browser.ManualVerifier
	policy   browser.Policy
	snap     *browser.Snapshotter
	cache    cache.Client
	pipeline *Pipeline
	validate *validator.Validate
	sem      *semaphore.Weighted
	group    singleflight.Group
	log      logrus.FieldLogger
}

func NewService(opts Options) *Service {
	slots := opts.Config.Server.MaxSessions
	if slots < 1 {
		slots = 1
	}
	s := &Service{
		cfg:      opts.Config,
		creds:    opts.Credentials,
		sessions: opts.Sessions,
		auth:     opts.Auth,
		verifier: opts.Verifier,
		policy:   opts.Policy,
		snap:     opts.Snapshots,
		cache:    opts.Cache,
		validate: validator.New(),
		sem:      semaphore.NewWeighted(int64(slots)),
		log:      opts.Log,
	}
	s.pipeline = NewPipeline(opts.Config, opts.Policy, opts.Extractor, s.SignIn, opts.Snapshots, opts.Log)
	return s
}

// Validate checks a request before any browsing happens.
func (s *Service) Validate(req Request) error {
	if err := s.validate.Struct(req); err != nil {
		return eris.Wrap(err, "invalid request")
	}
	return nil
}

// Resolve validates req, answers from the cache when it can and
// otherwise resolves it on a new session. Identical requests running at
// the same time share one resolution, which keeps running for the others
// when one caller goes away.
func (s *Service) Resolve(ctx context.Context, req Request) Result {
	if err := s.Validate(req); err != nil {
		return Failure(req.BusinessName, err)
	}
	ch := s.group.DoChan(req.Key(), func() (interface{}, error) {
		shared, cancel := s.detach(ctx)
		defer cancel()
		return cache.Memoize(shared, s.cache, cachePrefix+req.Key(), s.cfg.Redis.TTL, func() (*Profile, error) {
			return s.resolveFresh(shared, req)
		})
	})

	select {
	case <-ctx.Done():
		return Failure(req.BusinessName, eris.Wrap(ctx.Err(), "resolution abandoned"))
	case res := <-ch:
		if res.Shared {
			s.log.WithField("business", req.BusinessName).Debug("joined an identical resolution")
		}
		if res.Err != nil {
			return Failure(req.BusinessName, res.Err)
		}
		return Success(req.BusinessName, res.Val.(*Profile))
	}
}

// detach returns a context that outlives the caller's cancellation but
// still ends once a launch plus one resolution could have finished.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	shared := context.WithoutCancel(ctx)
	if s.cfg.Batch.ResolutionTimeout <= 0 {
		return context.WithCancel(shared)
	}
	budget := s.cfg.Batch.ResolutionTimeout + s.cfg.Browser.LaunchTimeout + s.cfg.Browser.LockWait
	return context.WithTimeout(shared, budget)
}

func (s *Service) resolveFresh(ctx context.Context, req Request) (*Profile, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "wait for a free session slot")
	}
	defer s.sem.Release(1)

	var profile *Profile
	err := s.sessions.With(ctx, s.cfg.Browser.Headless, func(sess *browser.Session) error {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		if err := s.SignIn(ctx, sess.Page); err != nil {
			return err
		}
		var err error
		profile, err = s.runBounded(ctx, sess, req)
		return err
	})
	return profile, err
}

// ResolveOn resolves req on an already signed-in session, consulting the
// cache first. The session is released if the resolution times out.
func (s *Service) ResolveOn(ctx context.Context, sess *browser.Session, req Request) Result {
	if err := s.Validate(req); err != nil {
		return Failure(req.BusinessName, err)
	}
	profile, err := cache.Memoize(ctx, s.cache, cachePrefix+req.Key(), s.cfg.Redis.TTL, func() (*Profile, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		return s.runBounded(ctx, sess, req)
	})
	if err != nil {
		return Failure(req.BusinessName, err)
	}
	return Success(req.BusinessName, profile)
}

// SignIn authenticates page with the configured credentials, handing over
// to the manual verifier when the site asks for it. Without a verifier an
// anonymous session carries on signed out.
func (s *Service) SignIn(ctx context.Context, page browser.Page) error {
	state, err := s.auth.Authenticate(ctx, page, s.creds)
	if err != nil {
		return err
	}
	if state == browser.Authenticated {
		return nil
	}
	if s.verifier == nil {
		if s.creds.Anonymous() {
			s.log.Info("continuing without signing in")
			return nil
		}
		return &browser.LoginError{Message: "manual verification required but no verifier is available"}
	}

	loc, _ := page.Location(ctx)
	if err := s.verifier.AwaitVerification(ctx, loc); err != nil {
		return &browser.LoginError{Message: "manual verification", Cause: err}
	}
	_, err = s.auth.ResumeAfterManualVerification(ctx, page)
	return err
}

// Acquire launches a session and signs it in. The session occupies one
// of the server.max_sessions slots until it is released, and it is
// released again if signing in fails.
func (s *Service) Acquire(ctx context.Context) (*browser.Session, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "wait for a free session slot")
	}
	sess, err := s.sessions.Acquire(ctx, s.cfg.Browser.Headless)
	if err != nil {
		s.sem.Release(1)
		return nil, err
	}
	sess.OnRelease(func() { s.sem.Release(1) })
	if err := s.SignIn(ctx, sess.Page); err != nil {
		_ = sess.Release()
		return nil, err
	}
	return sess, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Batch.ResolutionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Batch.ResolutionTimeout)
}

// runBounded runs the pipeline until it finishes or ctx expires. On
// expiry the session is released at once so the browser cannot outlive
// the deadline. A panic becomes an InternalError.
func (s *Service) runBounded(ctx context.Context, sess *browser.Session, req Request) (*Profile, error) {
	type outcome struct {
		profile *Profile
		err     error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	log := s.log.WithFields(logrus.Fields{"business": req.BusinessName, "session": sess.ID})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("resolution panicked")
				s.capture(ctx, sess, "internal_failure")
				done <- outcome{err: &InternalError{Value: r}}
			}
		}()
		profile, err := s.pipeline.Resolve(ctx, sess.Page, req)
		done <- outcome{profile: profile, err: err}
	}()

	select {
	case o := <-done:
		log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("resolution finished")
		return o.profile, o.err
	case <-ctx.Done():
		log.Warn("resolution timed out, releasing session")
		if err := sess.Release(); err != nil {
			log.WithError(err).Warn("session release")
		}
		return nil, eris.Wrap(ctx.Err(), "resolution timed out")
	}
}

func (s *Service) capture(ctx context.Context, sess *browser.Session, label string) {
	if _, err := s.snap.Capture(ctx, sess.Page, label); err != nil {
		s.log.WithError(err).Warn("snapshot")
	}
}
