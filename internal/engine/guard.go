package engine

import (
	"context"
	"fmt"

	"github.com/example/supplybot/internal/metrics"
)

// runIdentityGuard re-validates the session identity on a fixed interval
// until the session context ends. A mismatch means the portal is showing a
// different account than the one this session was started for, so the guard
// deactivates every supply of the account and stops. It deliberately does
// not touch the running tasks; losing their active flag makes any booking
// they might still land inert on the next dispatch.
func (m *SessionManager) runIdentityGuard(ctx context.Context) {
	interval := m.deps.Portal.Timeouts.IdentityInterval
	for {
		if !sleep(ctx, interval) {
			return
		}

		page, err := m.session.NewPage()
		if err != nil {
			m.log.Warnw("identity guard could not open a page", "error", err)
			continue
		}
		err = m.confirmIdentity(ctx, page)
		_ = page.Close()
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		metrics.IdentityMismatchesTotal.Inc()
		m.log.Errorw("identity check failed, deactivating account", "error", err)
		if derr := m.deps.Store.DeactivateAll(ctx, m.account.ID); derr != nil {
			m.log.Errorw("deactivate after identity failure", "error", derr)
		}
		m.deps.Notify.Notify(ctx, m.account.ID,
			fmt.Sprintf("Identity check failed for account %s, supplies deactivated: %v", m.account.ID, err))
		return
	}
}
