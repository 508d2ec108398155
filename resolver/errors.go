package resolver

import (
	"context"
	"errors"
	"fmt"

	"companyresolver/browser"

	"github.com/go-playground/validator/v10"
)

// Failure kinds carried in Result.ErrorKind.
const (
	KindSessionLaunch  = "session_launch"
	KindSessionBusy    = "session_busy"
	KindLogin          = "login"
	KindNavigation     = "navigation"
	KindNoResolution   = "no_resolution"
	KindTimeout        = "timeout"
	KindInvalidRequest = "invalid_request"
	KindInternal       = "internal"
)

// NoResolutionError means every query was tried without confirming a
// company page.
type NoResolutionError struct {
	BusinessName string
	Queries      []string
}

func (e *NoResolutionError) Error() string {
	return fmt.Sprintf("no resolution after fallback for %q (%d queries tried)", e.BusinessName, len(e.Queries))
}

// InternalError wraps a panic recovered while resolving.
type InternalError struct {
	Value any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal failure: %v", e.Value)
}

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	var (
		launchErr *browser.SessionLaunchError
		busyErr   *browser.WorkspaceBusyError
		loginErr  *browser.LoginError
		navErr    *browser.NavigationError
		noResErr  *NoResolutionError
		invalid   validator.ValidationErrors
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &launchErr):
		return KindSessionLaunch
	case errors.As(err, &busyErr):
		return KindSessionBusy
	case errors.As(err, &loginErr):
		return KindLogin
	case errors.As(err, &noResErr):
		return KindNoResolution
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &invalid):
		return KindInvalidRequest
	case errors.As(err, &navErr):
		return KindNavigation
	default:
		return KindInternal
	}
}
