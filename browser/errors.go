package browser

import (
	"fmt"
	"time"
)

// SessionLaunchError means no browser could be started after the
// configured number of attempts.
type SessionLaunchError struct {
	Attempts int
	Cause    error
}

func (e *SessionLaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session launch failed after %d attempts: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("session launch failed after %d attempts", e.Attempts)
}

func (e *SessionLaunchError) Unwrap() error {
	return e.Cause
}

// LoginError means the credentials were rejected or a manual
// verification was not completed.
type LoginError struct {
	Message string
	Cause   error
}

func (e *LoginError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("login error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("login error: %s", e.Message)
}

func (e *LoginError) Unwrap() error {
	return e.Cause
}

// NavigationError means a page failed to load or an element never
// appeared.
type NavigationError struct {
	URL     string
	Message string
	Cause   error
}

func (e *NavigationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("navigation error for %s: %s", e.URL, e.Message)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// WorkspaceBusyError means the persistent workspace stayed locked by
// another session for longer than the configured wait.
type WorkspaceBusyError struct {
	Workspace string
	Waited    time.Duration
}

func (e *WorkspaceBusyError) Error() string {
	return fmt.Sprintf("workspace %s still in use by another session after %s", e.Workspace, e.Waited)
}
