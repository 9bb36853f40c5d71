package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/supplybot/internal/domain/booking"
	"github.com/example/supplybot/internal/portal"
	"github.com/example/supplybot/internal/store"
)

type countingLauncher struct {
	mu       sync.Mutex
	sessions int
	build    func() *fakeSession
}

func (l *countingLauncher) NewSession(context.Context) (portal.Session, error) {
	l.mu.Lock()
	l.sessions++
	l.mu.Unlock()
	return l.build(), nil
}

func (l *countingLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions
}

func TestOrchestratorRunsEveryAccount(t *testing.T) {
	notif := &fakeNotifier{}
	accounts := []booking.Account{
		{ID: testAccountID, Tier: booking.TierPaid},
		{ID: "7809876543", Tier: booking.TierFree},
	}
	st := store.NewMemory(accounts)
	deps := testDeps(st, notif)

	// sessions never authenticate; each account fails on its own and the
	// orchestrator still finishes cleanly
	launcher := &countingLauncher{build: func() *fakeSession {
		return &fakeSession{primary: newFakePage()}
	}}
	deps.Launcher = launcher

	require.NoError(t, NewOrchestrator(deps).Run(context.Background()))
	assert.Equal(t, 2, launcher.count())
	assert.Len(t, notif.all(), 2, "one auth notification per account")
}

func TestOrchestratorNoAccounts(t *testing.T) {
	deps := testDeps(store.NewMemory(nil), &fakeNotifier{})
	assert.Error(t, NewOrchestrator(deps).Run(context.Background()))
}
