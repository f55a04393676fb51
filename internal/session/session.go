// Package session provides remote sessions against the registrar.
//
// A Session is owned by exactly one worker for its whole lifetime and is not
// safe for concurrent Fetch calls.
package session

import (
	"context"
	"errors"
)

var (
	// ErrSessionClosed is returned by Fetch after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrTooManyRedirects is returned when a page redirects more than the hop limit.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Page is a loaded registrar page.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Session is one remote automation context with its own cookies and pacing.
type Session interface {
	// ID identifies the session in logs.
	ID() string
	// Fetch loads url, bounded by the session's per-operation timeout.
	// Non-2xx responses are returned as pages, not errors.
	Fetch(ctx context.Context, url string) (*Page, error)
	// Close releases the session. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Provider creates sessions.
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
}
