package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/supplybot/internal/domain/booking"
	"github.com/example/supplybot/internal/portal"
)

// SessionManager owns one account's browser session: cookie lifecycle,
// authentication, and fan-out of the account's supplies into concurrent
// tasks. A failed session is not retried automatically; the account is
// surfaced once via notification and skipped for the run.
type SessionManager struct {
	account booking.Account
	deps    Deps
	log     *zap.SugaredLogger

	session portal.Session

	tasks      sync.WaitGroup
	background sync.WaitGroup

	notifyOnce sync.Once
	authNotify sync.Once
}

func NewSessionManager(account booking.Account, deps Deps) *SessionManager {
	return &SessionManager{
		account: account,
		deps:    deps,
		log:     deps.Log.With("account", account.ID),
	}
}

// Start acquires the browser session, restores persisted cookies (best
// effort), opens the portal landing page and runs the authentication check.
// Cookies are persisted again only after the check passes. On any failure
// every acquired resource is released before returning.
func (m *SessionManager) Start(ctx context.Context) error {
	sess, err := m.deps.Launcher.NewSession(ctx)
	if err != nil {
		m.notifySessionFailed(ctx, fmt.Sprintf("Session start failed for account %s", m.account.ID))
		return fmt.Errorf("acquire session: %w", err)
	}
	m.session = sess

	cookies, err := m.deps.Jar.Load(m.account.ID)
	if err != nil {
		m.log.Warnw("cookie jar unreadable, continuing without", "error", err)
	} else if len(cookies) > 0 {
		if err := sess.SetCookies(cookies); err != nil {
			m.log.Warnw("cookie restore failed, continuing without", "error", err)
		} else {
			m.log.Infow("cookies restored", "count", len(cookies))
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, m.deps.Portal.Timeouts.AuthNavigate)
	defer cancel()
	if err := sess.Page().Navigate(navCtx, m.deps.Portal.URLs.Seller); err != nil {
		m.Shutdown()
		m.notifySessionFailed(ctx, fmt.Sprintf("Portal unreachable for account %s", m.account.ID))
		return fmt.Errorf("open portal: %w", err)
	}

	if err := m.checkAuth(ctx); err != nil {
		m.Shutdown()
		return fmt.Errorf("authentication: %w", err)
	}

	current, err := sess.Cookies()
	if err != nil {
		m.log.Warnw("cookie read failed after authentication", "error", err)
	} else if err := m.deps.Jar.Save(m.account.ID, current); err != nil {
		m.log.Warnw("cookie persist failed", "error", err)
	} else {
		m.log.Infow("cookies persisted", "count", len(current))
	}

	m.log.Info("session ready")
	return nil
}

// Dispatch admits the account's active supplies against its tier policy and
// starts one task per admitted supply, plus the identity guard. It returns
// once everything is started; Wait joins the tasks.
func (m *SessionManager) Dispatch(ctx context.Context) error {
	supplies, err := m.deps.Store.ActiveSupplies(ctx, m.account.ID)
	if err != nil {
		return fmt.Errorf("load supplies: %w", err)
	}

	policy := booking.PolicyFor(m.account.Tier)
	admitted, err := booking.Admit(supplies, policy)
	if err != nil {
		// fails closed: over-quota dispatches admit nothing
		m.deps.Notify.Notify(ctx, m.account.ID,
			fmt.Sprintf("Dispatch rejected for account %s: %v", m.account.ID, err))
		return fmt.Errorf("admit supplies: %w", err)
	}
	if dropped := len(supplies) - len(admitted); dropped > 0 {
		m.log.Warnw("supplies dropped by access policy", "dropped", dropped, "tier", m.account.Tier)
	}
	if len(admitted) == 0 {
		m.log.Info("no admitted supplies")
		return nil
	}

	m.background.Add(1)
	go func() {
		defer m.background.Done()
		m.runIdentityGuard(ctx)
	}()

	for _, s := range admitted {
		t := newTask(m.account, s, m.session, m.deps)
		m.tasks.Add(1)
		go func() {
			defer m.tasks.Done()
			t.Run(ctx)
		}()
	}
	m.log.Infow("supply tasks started", "count", len(admitted))
	return nil
}

// Wait blocks until every supply task has finished.
func (m *SessionManager) Wait() { m.tasks.Wait() }

// Shutdown releases the session resources. Idempotent; safe after partial
// startup failures.
func (m *SessionManager) Shutdown() {
	if m.session != nil {
		_ = m.session.Close()
	}
}

// Run drives the whole lifecycle: start, dispatch, wait for the tasks,
// then tear the session down (which also stops the identity guard).
func (m *SessionManager) Run(ctx context.Context) error {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := m.Start(sessCtx); err != nil {
		return err
	}
	defer m.Shutdown()

	if err := m.Dispatch(sessCtx); err != nil {
		return err
	}
	m.Wait()
	cancel()
	m.background.Wait()
	return nil
}

func (m *SessionManager) notifySessionFailed(ctx context.Context, msg string) {
	m.notifyOnce.Do(func() {
		m.deps.Notify.Notify(ctx, m.account.ID, msg)
	})
}
