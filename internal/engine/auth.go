package engine

import (
	"context"
	"fmt"

	"github.com/example/supplybot/internal/metrics"
	"github.com/example/supplybot/internal/portal"
)

// authState is the authentication check's explicit state machine. The check
// resolves to exactly one of authenticated or failed; partial results never
// leak out.
type authState int

const (
	authChecking authState = iota
	authAuthenticated
	authFailed
)

// checkAuth polls for the DOM marker that only exists when authenticated,
// then confirms the displayed identity matches the configured account.
// An identity mismatch is an authentication failure: operating under the
// wrong account is worse than not operating at all.
func (m *SessionManager) checkAuth(ctx context.Context) error {
	t := m.deps.Portal.Timeouts
	page := m.session.Page()

	state := authChecking
	var cause error

	for attempt := 1; state == authChecking; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := page.WaitFor(m.deps.Portal.Selectors.Auth.Authorized, portal.StateAttached, t.AuthWait)
		if err == nil {
			m.log.Info("authenticated")
			if err := m.confirmIdentity(ctx, page); err != nil {
				state, cause = authFailed, err
				break
			}
			state = authAuthenticated
			break
		}
		m.log.Infow("not authenticated", "attempt", attempt, "max", t.MaxAuthAttempts)
		if attempt >= t.MaxAuthAttempts {
			state = authFailed
			cause = fmt.Errorf("no authentication marker after %d attempts", t.MaxAuthAttempts)
			break
		}
		if !sleep(ctx, t.AuthPollInterval) {
			return ctx.Err()
		}
	}

	if state == authFailed {
		metrics.AuthFailuresTotal.Inc()
		m.notifyAuthRequired(ctx)
		return cause
	}
	return nil
}

// notifyAuthRequired fires at most once per session, however many times the
// check re-fails afterwards.
func (m *SessionManager) notifyAuthRequired(ctx context.Context) {
	m.authNotify.Do(func() {
		m.deps.Notify.Notify(ctx, m.account.ID,
			fmt.Sprintf("Authentication required for account %s", m.account.ID))
	})
}

// confirmIdentity opens the supplier card and compares the displayed
// identity value byte-for-byte against the account id.
func (m *SessionManager) confirmIdentity(ctx context.Context, page portal.Page) error {
	t := m.deps.Portal.Timeouts

	navCtx, cancel := context.WithTimeout(ctx, t.Navigate)
	defer cancel()
	if err := page.Navigate(navCtx, m.deps.Portal.URLs.SupplierCard); err != nil {
		return fmt.Errorf("open supplier card: %w", err)
	}

	el, err := page.WaitFor(m.deps.Portal.Selectors.Auth.Identity, portal.StateVisible, t.WaitSelector)
	if err != nil {
		return fmt.Errorf("identity field: %w", err)
	}
	shown, err := el.Attribute("value")
	if err != nil {
		return fmt.Errorf("identity value: %w", err)
	}
	if shown != m.account.ID {
		return fmt.Errorf("%w: portal shows identity %q, expected %q",
			ErrStructuralMismatch, shown, m.account.ID)
	}
	m.log.Infow("identity confirmed", "identity", shown)
	return nil
}
