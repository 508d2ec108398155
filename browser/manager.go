// Package browser owns browser session lifetimes and the human-like
// interaction used to drive them.
package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"companyresolver/config"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	lockFileName   = ".session.lock"
	lockRetryDelay = 250 * time.Millisecond
)

// Session is one exclusively owned browser plus its workspace directory.
type Session struct {
	ID        string
	Page      Page
	Workspace string
	Client    config.ClientProfile

	temporary    bool
	lock         *flock.Flock
	closeBrowser func()
	once         sync.Once
	mu           sync.Mutex
	released     bool
	onRelease    []func()
	log          logrus.FieldLogger
}

// Release closes the browser, unlocks the workspace and removes it when
// it was temporary. Calling it again is a no-op.
func (s *Session) Release() error {
	var err error
	s.once.Do(func() {
		if s.closeBrowser != nil {
			s.closeBrowser()
		}
		if s.lock != nil {
			if uerr := s.lock.Unlock(); uerr != nil {
				err = eris.Wrap(uerr, "unlock workspace")
			}
		}
		if s.temporary && s.Workspace != "" {
			if rerr := os.RemoveAll(s.Workspace); rerr != nil && err == nil {
				err = eris.Wrapf(rerr, "remove workspace %s", s.Workspace)
			}
		}
		s.mu.Lock()
		s.released = true
		hooks := s.onRelease
		s.onRelease = nil
		s.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
		s.log.WithField("workspace", s.Workspace).Debug("session released")
	})
	return err
}

// OnRelease registers fn to run once the session is released, or runs
// it at once when that already happened.
func (s *Session) OnRelease(fn func()) {
	s.mu.Lock()
	if !s.released {
		s.onRelease = append(s.onRelease, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Released reports whether Release has run.
func (s *Session) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Manager hands out sessions. It holds no browsers itself; every
// Acquire launches a fresh one.
type Manager struct {
	cfg      config.Browser
	policy   Policy
	launcher Launcher
	log      logrus.FieldLogger
}

// NewManager builds a Manager. A nil launcher means Chrome.
func NewManager(cfg config.Browser, policy Policy, launcher Launcher, log logrus.FieldLogger) *Manager {
	if launcher == nil {
		launcher = ChromeLauncher{}
	}
	return &Manager{cfg: cfg, policy: policy, launcher: launcher, log: log}
}

// Acquire launches a browser in a locked workspace, retrying with a
// growing backoff before giving up with a SessionLaunchError. A
// persistent profile still held by another session after LockWait
// yields a WorkspaceBusyError instead.
func (m *Manager) Acquire(ctx context.Context, headless bool) (*Session, error) {
	id := uuid.NewString()
	log := m.log.WithField("session", id[:8])

	dir, temporary, err := m.workspace(id)
	if err != nil {
		return nil, &SessionLaunchError{Attempts: 0, Cause: err}
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := m.lockWorkspace(ctx, lock, dir); err != nil {
		if temporary {
			_ = os.RemoveAll(dir)
		}
		return nil, err
	}

	client := m.pickClient()
	opts := LaunchOptions{
		Headless:     headless,
		ExecPath:     m.cfg.ExecPath,
		WorkspaceDir: dir,
		Client:       client,
		Width:        m.cfg.WindowWidth,
		Height:       m.cfg.WindowHeight,
		Timeout:      m.cfg.LaunchTimeout,
		NavTimeout:   m.cfg.NavTimeout,
	}

	attempts := m.cfg.LaunchAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		log.WithFields(logrus.Fields{"attempt": attempt, "workspace": dir}).Info("launching browser")
		page, closeFn, err := m.launcher.Launch(ctx, opts)
		if err == nil {
			s := &Session{
				ID:           id,
				Page:         &pacedPage{Page: page, limiter: newLimiter(m.cfg.NavigationsPerMinute)},
				Workspace:    dir,
				Client:       client,
				temporary:    temporary,
				lock:         lock,
				closeBrowser: closeFn,
				log:          log,
			}
			if err := Pace(ctx, m.policy, PauseLaunchSettle); err != nil {
				_ = s.Release()
				return nil, &SessionLaunchError{Attempts: attempt, Cause: err}
			}
			return s, nil
		}

		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("browser launch failed")
		if attempt == attempts {
			break
		}
		if err := Sleep(ctx, time.Duration(attempt)*m.policy.Wait(PauseLaunchRetry)); err != nil {
			lastErr = err
			break
		}
	}

	_ = lock.Unlock()
	if temporary {
		_ = os.RemoveAll(dir)
	}
	return nil, &SessionLaunchError{Attempts: attempts, Cause: lastErr}
}

// lockWorkspace takes the workspace lock, waiting up to LockWait for a
// persistent profile held by another session.
func (m *Manager) lockWorkspace(ctx context.Context, lock *flock.Flock, dir string) error {
	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.LockWait)
	defer cancel()

	locked, err := lock.TryLock()
	if err == nil && !locked && m.cfg.LockWait > 0 {
		m.log.WithField("workspace", dir).Info("workspace in use, waiting for it")
		locked, err = lock.TryLockContext(waitCtx, lockRetryDelay)
	}
	switch {
	case locked:
		return nil
	case ctx.Err() != nil:
		return eris.Wrap(ctx.Err(), "wait for workspace lock")
	case err != nil && !errors.Is(err, context.DeadlineExceeded):
		return &SessionLaunchError{Attempts: 0, Cause: eris.Wrapf(err, "lock workspace %s", dir)}
	default:
		return &WorkspaceBusyError{Workspace: dir, Waited: m.cfg.LockWait}
	}
}

// With acquires a session, runs fn and releases the session on every
// exit path, panics included.
func (m *Manager) With(ctx context.Context, headless bool, fn func(*Session) error) error {
	s, err := m.Acquire(ctx, headless)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); rerr != nil {
			m.log.WithError(rerr).Warn("session release")
		}
	}()
	return fn(s)
}

func (m *Manager) workspace(id string) (string, bool, error) {
	if m.cfg.ProfileDir != "" {
		if err := os.MkdirAll(m.cfg.ProfileDir, 0o700); err != nil {
			return "", false, eris.Wrapf(err, "create profile dir %s", m.cfg.ProfileDir)
		}
		return m.cfg.ProfileDir, false, nil
	}
	dir, err := os.MkdirTemp(m.cfg.WorkDir, "session-"+id[:8]+"-")
	if err != nil {
		return "", false, eris.Wrap(err, "create temporary workspace")
	}
	return dir, true, nil
}

func (m *Manager) pickClient() config.ClientProfile {
	agents := m.cfg.UserAgents
	if len(agents) == 0 {
		for _, p := range config.ClientProfiles {
			agents = append(agents, p.UserAgent)
		}
	}
	if len(agents) == 0 {
		return config.ProfileFor("")
	}
	return config.ProfileFor(agents[m.policy.Intn(0, len(agents)-1)])
}
