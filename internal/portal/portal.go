// Package portal defines the capability contract the booking engine needs
// from a browser-automation backend. The engine never talks to playwright
// directly; it drives these interfaces, and tests drive them with fakes.
package portal

import (
	"context"
	"errors"
	"time"
)

// Errors every operation may fail with. Callers are expected to handle
// both explicitly; there is no always-succeeds operation on a live page.
var (
	// ErrNotFound means the element is not present in the DOM.
	ErrNotFound = errors.New("portal: element not found")
	// ErrTimeout means the wait condition was not met in time.
	ErrTimeout = errors.New("portal: timed out")
)

// WaitState selects how strongly an element must exist before a wait returns.
type WaitState string

const (
	StateAttached WaitState = "attached"
	StateVisible  WaitState = "visible"
)

// Cookie is the serializable form of one browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// Element is a handle to one interactive DOM node.
type Element interface {
	Click() error
	Hover() error
	Text() (string, error)
	// Attribute returns the attribute value, or "" and ErrNotFound when the
	// attribute is absent.
	Attribute(name string) (string, error)
	// Query finds the first descendant matching the selector.
	Query(selector string) (Element, error)
	// WaitFor waits for a descendant to reach the given state.
	WaitFor(selector string, state WaitState, timeout time.Duration) (Element, error)
}

// Page is one browser tab. A page is exclusively owned by the task that
// opened it; the popup loop gets read/click access but must never navigate.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(selector string, state WaitState, timeout time.Duration) (Element, error)
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	URL() string
	Close() error
}

// Session is one isolated authenticated browser context bound to one account.
type Session interface {
	// Page returns the session's primary page, created at session start.
	Page() Page
	// NewPage opens an additional tab in the same context.
	NewPage() (Page, error)
	Cookies() ([]Cookie, error)
	SetCookies([]Cookie) error
	// Close releases every page, the context and the browser process.
	// It is idempotent and tolerates partially released resources.
	Close() error
}

// Launcher produces isolated sessions, one per account.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
}
