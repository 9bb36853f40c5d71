// Package notify delivers operator-facing messages. Delivery is best effort:
// a sink failure is logged and swallowed, and Notify never blocks the
// booking path.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier is the outbound notification sink.
type Notifier interface {
	// Notify sends message on behalf of accountID, fire-and-forget.
	Notify(ctx context.Context, accountID, message string)
}

// Noop discards everything.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) {}

// Log writes notifications to the process log. It is the fallback sink when
// no Telegram credentials are configured.
type Log struct {
	Logger *zap.SugaredLogger
}

func (l Log) Notify(_ context.Context, accountID, message string) {
	l.Logger.Infow("notification", "account", accountID, "message", message)
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, accountID, message string) {
	for _, n := range m {
		n.Notify(ctx, accountID, message)
	}
}
