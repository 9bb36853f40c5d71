package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/supplybot/internal/portal"
)

const defaultNavigateTimeout = 30 * time.Second

type page struct {
	pw playwright.Page
}

func (p *page) Navigate(ctx context.Context, url string) error {
	timeout := defaultNavigateTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	_, err := p.pw.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitFor maps every unmet wait to portal.ErrTimeout: the engine only cares
// whether the element showed up in time, not which driver error said no.
func (p *page) WaitFor(selector string, state portal.WaitState, timeout time.Duration) (portal.Element, error) {
	eh, err := p.pw.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   waitState(state),
		Timeout: millis(timeout),
	})
	if err != nil || eh == nil {
		return nil, fmt.Errorf("wait %q: %w", selector, portal.ErrTimeout)
	}
	return &element{eh: eh}, nil
}

func (p *page) Query(selector string) (portal.Element, error) {
	eh, err := p.pw.QuerySelector(selector)
	if err != nil || eh == nil {
		return nil, fmt.Errorf("query %q: %w", selector, portal.ErrNotFound)
	}
	return &element{eh: eh}, nil
}

func (p *page) QueryAll(selector string) ([]portal.Element, error) {
	ehs, err := p.pw.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query all %q: %w", selector, portal.ErrNotFound)
	}
	out := make([]portal.Element, 0, len(ehs))
	for _, eh := range ehs {
		out = append(out, &element{eh: eh})
	}
	return out, nil
}

func (p *page) URL() string { return p.pw.URL() }

func (p *page) Close() error { return p.pw.Close() }

type element struct {
	eh playwright.ElementHandle
}

func (e *element) Click() error {
	if err := e.eh.Click(); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (e *element) Hover() error {
	if err := e.eh.Hover(); err != nil {
		return fmt.Errorf("hover: %w", err)
	}
	return nil
}

func (e *element) Text() (string, error) {
	t, err := e.eh.InnerText()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return t, nil
}

func (e *element) Attribute(name string) (string, error) {
	v, err := e.eh.GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("attribute %q: %w", name, err)
	}
	if v == "" {
		return "", fmt.Errorf("attribute %q: %w", name, portal.ErrNotFound)
	}
	return v, nil
}

func (e *element) Query(selector string) (portal.Element, error) {
	eh, err := e.eh.QuerySelector(selector)
	if err != nil || eh == nil {
		return nil, fmt.Errorf("query %q: %w", selector, portal.ErrNotFound)
	}
	return &element{eh: eh}, nil
}

func (e *element) WaitFor(selector string, state portal.WaitState, timeout time.Duration) (portal.Element, error) {
	eh, err := e.eh.WaitForSelector(selector, playwright.ElementHandleWaitForSelectorOptions{
		State:   waitState(state),
		Timeout: millis(timeout),
	})
	if err != nil || eh == nil {
		return nil, fmt.Errorf("wait %q: %w", selector, portal.ErrTimeout)
	}
	return &element{eh: eh}, nil
}
