package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs one session manager per configured account. Accounts
// are isolated: a failed session ends that account's run and nothing else.
type Orchestrator struct {
	deps Deps
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run starts every account and blocks until all of them finish or ctx is
// cancelled. Per-account failures are logged and notified by the session
// manager itself; Run only fails when no accounts could be loaded.
func (o *Orchestrator) Run(ctx context.Context) error {
	accounts, err := o.deps.Store.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}
	o.deps.Log.Infow("starting accounts", "count", len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		account := account
		g.Go(func() error {
			m := NewSessionManager(account, o.deps)
			if err := m.Run(gctx); err != nil {
				o.deps.Log.Errorw("account run failed", "account", account.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
