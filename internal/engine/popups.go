package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/supplybot/internal/config"
	"github.com/example/supplybot/internal/metrics"
	"github.com/example/supplybot/internal/portal"
)

// watchPopups dismisses known interstitials on a page until ctx is
// cancelled. Patterns are probed in configuration order with a short
// timeout each; a pattern that is absent or refuses the click is simply
// skipped. The loop clicks dismiss controls but never navigates and never
// assumes anything about calendar state.
func watchPopups(ctx context.Context, page portal.Page, popups []config.Popup, timeouts config.Timeouts, log *zap.SugaredLogger) {
	for {
		for _, p := range popups {
			if ctx.Err() != nil {
				return
			}
			el, err := page.WaitFor(p.Dismiss, portal.StateVisible, timeouts.PopupProbe)
			if err != nil {
				continue
			}
			if err := el.Click(); err != nil {
				log.Debugw("popup dismiss click failed", "popup", p.Name, "error", err)
				continue
			}
			metrics.PopupsDismissedTotal.WithLabelValues(p.Name).Inc()
			log.Infow("popup dismissed", "popup", p.Name)
		}
		if !sleep(ctx, timeouts.PopupInterval) {
			return
		}
	}
}
