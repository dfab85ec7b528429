// Package scrape drives a profile extraction from URL to stored result.
package scrape

import (
	"errors"
	"fmt"

	"github.com/jonathan/profile-images/internal/fetch"
)

var (
	// ErrInvalidURL means the input is not an accepted profile URL.
	ErrInvalidURL = errors.New("invalid profile URL")
	// ErrSessionFailed means the site refused the session bootstrap request.
	ErrSessionFailed = errors.New("session initialization failed")
	// ErrFetchFailed means the profile page could not be retrieved.
	ErrFetchFailed = errors.New("profile fetch failed")
)

// Error carries the stage that failed together with a sentinel and the underlying cause.
// errors.Is matches the sentinel; errors.As reaches the cause.
type Error struct {
	URL   string
	Stage string
	Kind  error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scrape %s (%s): %v: %v", e.URL, e.Stage, e.Kind, e.Cause)
	}
	return fmt.Sprintf("scrape %s (%s): %v", e.URL, e.Stage, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// classifyNetworkError maps a fetch failure onto ErrSessionFailed or ErrFetchFailed.
func classifyNetworkError(urlStr, stage string, err error) *Error {
	kind := ErrFetchFailed
	var sessionErr *fetch.SessionError
	if errors.As(err, &sessionErr) {
		kind = ErrSessionFailed
		stage = "session"
	}
	return &Error{URL: urlStr, Stage: stage, Kind: kind, Cause: err}
}
