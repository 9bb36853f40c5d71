// Package engine is the booking core: per-account session lifecycle, the
// per-supply task state machine, slot selection, and the background loops
// that keep a live portal session usable (popup dismissal, identity
// re-validation).
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/supplybot/internal/config"
	"github.com/example/supplybot/internal/notify"
	"github.com/example/supplybot/internal/portal"
	"github.com/example/supplybot/internal/store"
)

// ErrStructuralMismatch marks content that disagrees with configuration:
// a wrong order number on the supply page or a wrong identity behind the
// session. Retrying cannot fix it, so it is never retried.
var ErrStructuralMismatch = errors.New("structural mismatch")

// CookieJar persists one cookie set per account.
type CookieJar interface {
	Load(accountID string) ([]portal.Cookie, error)
	Save(accountID string, cookies []portal.Cookie) error
}

// Options are the run-level policy knobs.
type Options struct {
	// AutoCommit clicks the final schedule control. When false a found slot
	// is selected and then left for manual confirmation.
	AutoCommit bool
	// MaxCalendarPolls caps close-and-reopen cycles while waiting for a
	// qualifying slot; 0 polls until the session ends.
	MaxCalendarPolls int
	// CalendarReopenFallback retries a stuck calendar with a fresh supply
	// page instead of failing the task.
	CalendarReopenFallback bool
}

// Deps bundles the collaborators every engine component shares.
type Deps struct {
	Launcher portal.Launcher
	Store    store.Store
	Jar      CookieJar
	Notify   notify.Notifier
	Portal   config.Portal
	Options  Options
	Log      *zap.SugaredLogger
}

// sleep waits for d or for cancellation; false means the context ended.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
