package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/supplybot/internal/domain/booking"
	"github.com/example/supplybot/internal/portal"
	"github.com/example/supplybot/internal/store"
)

const testAccountID = "7701234567"

func testDeps(st store.Store, n *fakeNotifier) Deps {
	return Deps{
		Store:   st,
		Notify:  n,
		Jar:     &fakeJar{},
		Portal:  testPortal(),
		Options: Options{AutoCommit: true, CalendarReopenFallback: true},
		Log:     zap.NewNop().Sugar(),
	}
}

func testAccount(supplies ...booking.Supply) booking.Account {
	return booking.Account{ID: testAccountID, Tier: booking.TierPaid, Supplies: supplies}
}

func testSupply(id string) booking.Supply {
	return booking.Supply{
		PreorderID: id,
		Settings: booking.BookingSettings{
			Mode:        booking.ModeSpecificDates,
			TargetDates: []string{"10 декабря"},
			Coefficient: booking.CoefficientTarget{Max: 3},
			Priority:    booking.PriorityCalendarOrder,
		},
		Status: booking.Status{Active: true},
	}
}

// authedPage wires the authentication marker and a matching identity field.
func authedPage(p *fakePage, deps Deps) {
	sel := deps.Portal.Selectors
	p.set(sel.Auth.Authorized, &fakeElement{})
	p.set(sel.Auth.Identity, &fakeElement{attrs: map[string]string{"value": testAccountID}})
}

func TestCheckAuthNotifiesExactlyOnce(t *testing.T) {
	notif := &fakeNotifier{}
	acct := testAccount()
	deps := testDeps(store.NewMemory([]booking.Account{acct}), notif)

	m := NewSessionManager(acct, deps)
	m.session = &fakeSession{primary: newFakePage()}

	require.Error(t, m.checkAuth(context.Background()))
	require.Error(t, m.checkAuth(context.Background()))

	msgs := notif.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Authentication required")
}

func TestCheckAuthIdentityMismatchFails(t *testing.T) {
	notif := &fakeNotifier{}
	acct := testAccount()
	deps := testDeps(store.NewMemory([]booking.Account{acct}), notif)

	page := newFakePage()
	page.set(deps.Portal.Selectors.Auth.Authorized, &fakeElement{})
	page.set(deps.Portal.Selectors.Auth.Identity, &fakeElement{attrs: map[string]string{"value": "0000000000"}})

	m := NewSessionManager(acct, deps)
	m.session = &fakeSession{primary: page}

	err := m.checkAuth(context.Background())
	require.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestStartRestoresAndPersistsCookies(t *testing.T) {
	notif := &fakeNotifier{}
	acct := testAccount()
	deps := testDeps(store.NewMemory([]booking.Account{acct}), notif)

	jar := &fakeJar{loaded: []portal.Cookie{{Name: "wbx", Value: "old"}}}
	deps.Jar = jar

	page := newFakePage()
	authedPage(page, deps)
	sess := &fakeSession{primary: page, cookies: []portal.Cookie{{Name: "wbx", Value: "fresh"}}}
	deps.Launcher = fakeLauncher{session: sess}

	m := NewSessionManager(acct, deps)
	require.NoError(t, m.Start(context.Background()))

	require.Len(t, sess.setArgs, 1)
	assert.Equal(t, "old", sess.setArgs[0][0].Value)
	require.Len(t, jar.saved, 1)
	assert.Equal(t, "fresh", jar.saved[0][0].Value)
	assert.Empty(t, notif.all())
}

func TestStartSessionFailureNotifies(t *testing.T) {
	notif := &fakeNotifier{}
	acct := testAccount()
	deps := testDeps(store.NewMemory([]booking.Account{acct}), notif)
	deps.Launcher = fakeLauncher{err: assert.AnError}

	m := NewSessionManager(acct, deps)
	require.Error(t, m.Start(context.Background()))
	msgs := notif.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Session start failed")
}

func TestDispatchRejectsOverQuota(t *testing.T) {
	notif := &fakeNotifier{}
	acct := booking.Account{ID: testAccountID, Tier: booking.TierFree, Supplies: []booking.Supply{
		testSupply("1"), testSupply("2"), testSupply("3"), testSupply("4"),
	}}
	st := store.NewMemory([]booking.Account{acct})
	deps := testDeps(st, notif)

	m := NewSessionManager(acct, deps)
	m.session = &fakeSession{primary: newFakePage()}

	err := m.Dispatch(context.Background())
	require.ErrorIs(t, err, booking.ErrSupplyLimitExceeded)

	msgs := notif.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Dispatch rejected")
}

func TestDispatchNoSupplies(t *testing.T) {
	notif := &fakeNotifier{}
	acct := testAccount()
	deps := testDeps(store.NewMemory([]booking.Account{acct}), notif)

	m := NewSessionManager(acct, deps)
	m.session = &fakeSession{primary: newFakePage()}

	require.NoError(t, m.Dispatch(context.Background()))
	m.Wait()
	assert.Empty(t, notif.all())
}
