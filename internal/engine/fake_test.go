package engine

import (
	"context"
	"sync"
	"time"

	"github.com/example/supplybot/internal/config"
	"github.com/example/supplybot/internal/portal"
)

// Fakes implementing the portal contract for engine tests. WaitFor never
// waits: an element is either wired in or the call fails immediately, which
// keeps the retry paths fast under the tiny test timeouts.

type fakeElement struct {
	mu       sync.Mutex
	text     string
	attrs    map[string]string
	children map[string]*fakeElement
	clicks   int
	onClick  func()
}

func (e *fakeElement) Click() error {
	e.mu.Lock()
	e.clicks++
	fn := e.onClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *fakeElement) Hover() error { return nil }

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(name string) (string, error) {
	if v, ok := e.attrs[name]; ok && v != "" {
		return v, nil
	}
	return "", portal.ErrNotFound
}

func (e *fakeElement) Query(selector string) (portal.Element, error) {
	if c, ok := e.children[selector]; ok {
		return c, nil
	}
	return nil, portal.ErrNotFound
}

func (e *fakeElement) WaitFor(selector string, _ portal.WaitState, _ time.Duration) (portal.Element, error) {
	if c, ok := e.children[selector]; ok {
		return c, nil
	}
	return nil, portal.ErrTimeout
}

func (e *fakeElement) clickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

type fakePage struct {
	mu        sync.Mutex
	url       string
	elements  map[string]*fakeElement
	lists     map[string][]*fakeElement
	navigated []string
	closed    bool
}

func newFakePage() *fakePage {
	return &fakePage{
		elements: map[string]*fakeElement{},
		lists:    map[string][]*fakeElement{},
	}
}

func (p *fakePage) set(selector string, el *fakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = el
}

func (p *fakePage) setList(selector string, els ...*fakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists[selector] = els
	if len(els) > 0 {
		p.elements[selector] = els[0]
	}
}

func (p *fakePage) setURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = u
}

func (p *fakePage) navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigated...)
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	p.url = url
	return nil
}

func (p *fakePage) WaitFor(selector string, _ portal.WaitState, _ time.Duration) (portal.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[selector]; ok {
		return el, nil
	}
	return nil, portal.ErrTimeout
}

func (p *fakePage) Query(selector string) (portal.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[selector]; ok {
		return el, nil
	}
	return nil, portal.ErrNotFound
}

func (p *fakePage) QueryAll(selector string) ([]portal.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.lists[selector]
	out := make([]portal.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out, nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeSession struct {
	mu      sync.Mutex
	primary *fakePage
	nextFn  func() *fakePage
	cookies []portal.Cookie
	setArgs [][]portal.Cookie
	closed  bool
}

func (s *fakeSession) Page() portal.Page { return s.primary }

func (s *fakeSession) NewPage() (portal.Page, error) {
	s.mu.Lock()
	fn := s.nextFn
	s.mu.Unlock()
	if fn != nil {
		return fn(), nil
	}
	return newFakePage(), nil
}

func (s *fakeSession) Cookies() ([]portal.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies, nil
}

func (s *fakeSession) SetCookies(cookies []portal.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setArgs = append(s.setArgs, cookies)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeLauncher struct {
	session portal.Session
	err     error
}

func (l fakeLauncher) NewSession(context.Context) (portal.Session, error) {
	return l.session, l.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ string, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message)
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type fakeJar struct {
	mu     sync.Mutex
	loaded []portal.Cookie
	saved  [][]portal.Cookie
}

func (j *fakeJar) Load(string) ([]portal.Cookie, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.loaded, nil
}

func (j *fakeJar) Save(_ string, cookies []portal.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.saved = append(j.saved, cookies)
	return nil
}

// testPortal keeps the default selector tables and shrinks every timeout so
// the retry loops resolve within a test run.
func testPortal() config.Portal {
	p := config.DefaultPortal()
	p.Popups = nil
	p.Timeouts = config.Timeouts{
		Navigate:     50 * time.Millisecond,
		AuthNavigate: 50 * time.Millisecond,
		WaitSelector: time.Millisecond,

		AuthWait:         time.Millisecond,
		AuthPollInterval: time.Millisecond,
		MaxAuthAttempts:  2,

		MaxOpenAttempts:      2,
		VerifyWait:           time.Millisecond,
		VerifyInterval:       time.Millisecond,
		MaxVerifyAttempts:    2,
		MaxCalendarAttempts:  2,
		Animation:            time.Millisecond,
		CalendarPollInterval: time.Millisecond,
		BookWait:             100 * time.Millisecond,

		PopupProbe:    time.Millisecond,
		PopupInterval: time.Millisecond,

		IdentityInterval: time.Millisecond,
		CookieTTL:        time.Hour,
	}
	return p
}
