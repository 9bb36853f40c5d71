// Package browser implements the portal contract on playwright. Everything
// above this package is playwright-free and tested against fakes.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/supplybot/internal/portal"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// Runtime owns the playwright driver process. One runtime serves every
// account session; each session still gets its own browser process.
type Runtime struct {
	pw       *playwright.Playwright
	headless bool
}

// NewRuntime installs the driver if needed and starts playwright.
func NewRuntime(headless bool) (*Runtime, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &Runtime{pw: pw, headless: headless}, nil
}

// Close stops the driver. Sessions must be closed first.
func (r *Runtime) Close() error {
	if r.pw == nil {
		return nil
	}
	return r.pw.Stop()
}

// NewSession launches an isolated chromium instance with its own context
// and primary page.
func (r *Runtime) NewSession(_ context.Context) (portal.Session, error) {
	b, err := r.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(r.headless),
		Args:     []string{"--no-sandbox"},
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: viewportWidth, Height: viewportHeight},
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create context: %w", err)
	}
	pg, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &session{
		browser: b,
		context: bctx,
		primary: &page{pw: pg},
	}, nil
}

type session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	primary *page
	once    sync.Once
}

func (s *session) Page() portal.Page { return s.primary }

func (s *session) NewPage() (portal.Page, error) {
	pg, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &page{pw: pg}, nil
}

func (s *session) Cookies() ([]portal.Cookie, error) {
	raw, err := s.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	out := make([]portal.Cookie, 0, len(raw))
	for _, c := range raw {
		pc := portal.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			pc.SameSite = string(*c.SameSite)
		}
		out = append(out, pc)
	}
	return out, nil
}

func (s *session) SetCookies(cookies []portal.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	converted := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires != 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		if ss := sameSite(c.SameSite); ss != nil {
			oc.SameSite = ss
		}
		converted = append(converted, oc)
	}
	if err := s.context.AddCookies(converted); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

// Close releases the page, context and browser process. Safe to call more
// than once and after a partial launch failure.
func (s *session) Close() error {
	s.once.Do(func() {
		if s.primary != nil {
			_ = s.primary.Close()
		}
		if s.context != nil {
			_ = s.context.Close()
		}
		if s.browser != nil {
			_ = s.browser.Close()
		}
	})
	return nil
}

func sameSite(s string) *playwright.SameSiteAttribute {
	switch s {
	case "Strict":
		return playwright.SameSiteAttributeStrict
	case "Lax":
		return playwright.SameSiteAttributeLax
	case "None":
		return playwright.SameSiteAttributeNone
	}
	return nil
}

func waitState(s portal.WaitState) *playwright.WaitForSelectorState {
	if s == portal.StateAttached {
		return playwright.WaitForSelectorStateAttached
	}
	return playwright.WaitForSelectorStateVisible
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
