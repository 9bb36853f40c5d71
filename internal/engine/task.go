package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/example/supplybot/internal/domain/booking"
	"github.com/example/supplybot/internal/metrics"
	"github.com/example/supplybot/internal/portal"
)

// errPermanent marks failures retrying with a fresh page cannot fix.
var errPermanent = errors.New("permanent failure")

// task books a single supply. It owns one or more supply pages over its
// lifetime, the popup watcher for each, and the supply's booked, reservation
// and attempts fields in the store.
type task struct {
	account booking.Account
	supply  booking.Supply
	session portal.Session
	deps    Deps
	log     *zap.SugaredLogger
}

func newTask(account booking.Account, supply booking.Supply, session portal.Session, deps Deps) *task {
	return &task{
		account: account,
		supply:  supply,
		session: session,
		deps:    deps,
		log:     deps.Log.With("account", account.ID, "preorder", supply.PreorderID),
	}
}

// Run drives the booking attempts. Transient failures get a fresh page up
// to the configured attempt cap; a structural mismatch between the page and
// the configuration ends the task immediately.
func (t *task) Run(ctx context.Context) {
	max := t.deps.Portal.Timeouts.MaxOpenAttempts
	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		err := t.attempt(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrStructuralMismatch) || errors.Is(err, errPermanent) {
			metrics.TasksFailedTotal.WithLabelValues("structural_mismatch").Inc()
			t.log.Errorw("supply task failed permanently", "error", err)
			t.deps.Notify.Notify(ctx, t.account.ID,
				fmt.Sprintf("Supply %s failed: %v", t.supply.PreorderID, err))
			return
		}
		lastErr = err
		t.log.Warnw("supply attempt failed", "attempt", attempt, "max", max, "error", err)
	}
	metrics.TasksFailedTotal.WithLabelValues("transient").Inc()
	t.log.Errorw("supply unavailable, giving up", "attempts", max, "error", lastErr)
	t.deps.Notify.Notify(ctx, t.account.ID,
		fmt.Sprintf("Supply %s unavailable after %d attempts: %v", t.supply.PreorderID, max, lastErr))
}

// attempt is one full pass: fresh page, verified order, calendar cycle.
// The popup watcher lives exactly as long as the page does.
func (t *task) attempt(ctx context.Context) error {
	page, err := t.session.NewPage()
	if err != nil {
		return fmt.Errorf("open supply page: %w", err)
	}
	defer func() { _ = page.Close() }()

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchPopups(pageCtx, page, t.deps.Portal.Popups, t.deps.Portal.Timeouts, t.log)

	navCtx, ncancel := context.WithTimeout(ctx, t.deps.Portal.Timeouts.Navigate)
	defer ncancel()
	url := t.deps.Portal.URLs.Supply + "?preorderId=" + t.supply.PreorderID
	if err := page.Navigate(navCtx, url); err != nil {
		return fmt.Errorf("open supply: %w", err)
	}

	if err := t.verifyOrder(ctx, page); err != nil {
		return err
	}
	return t.bookingCycle(ctx, page)
}

// verifyOrder confirms the page belongs to the configured preorder before
// anything gets clicked. A present title with the wrong number is never
// retried; booking against the wrong order is the one mistake this guard
// exists to prevent.
func (t *task) verifyOrder(ctx context.Context, page portal.Page) error {
	sel := t.deps.Portal.Selectors.Supply
	to := t.deps.Portal.Timeouts

	b := retry.WithMaxRetries(uint64(to.MaxVerifyAttempts-1), retry.NewConstant(to.VerifyInterval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		el, err := page.WaitFor(sel.OrderTitle, portal.StateVisible, to.VerifyWait)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("order title: %w", err))
		}
		title, err := el.Text()
		if err != nil {
			return retry.RetryableError(fmt.Errorf("order title text: %w", err))
		}
		shown := orderNumber(title)
		if shown != t.supply.PreorderID {
			return fmt.Errorf("%w: page shows order %q, expected %q",
				ErrStructuralMismatch, shown, t.supply.PreorderID)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrStructuralMismatch) && ctx.Err() == nil {
		t.deps.Notify.Notify(ctx, t.account.ID,
			fmt.Sprintf("Supply %s could not be verified, check the order number", t.supply.PreorderID))
	}
	return err
}

// orderNumber extracts the trailing number from a title like "Заказ № 1234".
func orderNumber(title string) string {
	parts := strings.Split(title, "№")
	return strings.TrimSpace(parts[len(parts)-1])
}

// bookingCycle alternates between reading the calendar and waiting until a
// qualifying slot appears, then commits it. Zero MaxCalendarPolls polls for
// as long as the session lives.
func (t *task) bookingCycle(ctx context.Context, page portal.Page) error {
	to := t.deps.Portal.Timeouts
	opts := t.deps.Options

	for polls := 0; ; polls++ {
		if opts.MaxCalendarPolls > 0 && polls >= opts.MaxCalendarPolls {
			return fmt.Errorf("no qualifying slot after %d calendar polls", polls)
		}
		active, err := t.stillActive(ctx)
		if err != nil {
			return err
		}
		if !active {
			t.log.Info("supply no longer active, stopping")
			return nil
		}
		if err := t.openCalendar(ctx, page); err != nil {
			return err
		}
		slots, err := t.discoverSlots(page)
		if err != nil {
			return err
		}
		chosen := booking.Select(slots, t.supply.Settings)
		if len(chosen) == 0 {
			t.log.Infow("no qualifying slot yet", "observed", len(slots))
			t.closeCalendar(page)
			if !sleep(ctx, to.CalendarPollInterval) {
				return ctx.Err()
			}
			continue
		}

		slot := chosen[0]
		if err := t.selectSlot(page, slot); err != nil {
			return err
		}
		if !opts.AutoCommit {
			t.log.Infow("slot selected, auto commit disabled", "date", slot.Date)
			t.deps.Notify.Notify(ctx, t.account.ID,
				fmt.Sprintf("Slot %s selected for supply %s, confirm the booking manually",
					slot.Date, t.supply.PreorderID))
			return nil
		}
		if err := t.schedule(ctx, page); err != nil {
			return err
		}
		return t.confirm(ctx, page, slot)
	}
}

// stillActive re-reads the supply's active flag from the store. The
// identity guard deactivates supplies account-wide; each poll cycle starts
// by honoring that flag so a deactivated task stops before booking anything
// under a session whose identity is no longer trusted.
func (t *task) stillActive(ctx context.Context) (bool, error) {
	supplies, err := t.deps.Store.ActiveSupplies(ctx, t.account.ID)
	if err != nil {
		return false, fmt.Errorf("refresh supply state: %w", err)
	}
	for _, s := range supplies {
		if s.PreorderID == t.supply.PreorderID {
			return true, nil
		}
	}
	return false, nil
}

// openCalendar clicks the plan control until calendar cells render. When
// reopening is exhausted the failure stays transient only if the fallback
// to a fresh supply page is enabled.
func (t *task) openCalendar(ctx context.Context, page portal.Page) error {
	sel := t.deps.Portal.Selectors
	to := t.deps.Portal.Timeouts

	b := retry.WithMaxRetries(uint64(to.MaxCalendarAttempts-1), retry.NewConstant(to.Animation))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		btn, err := page.WaitFor(sel.Supply.PlanButton, portal.StateVisible, to.WaitSelector)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("plan control: %w", err))
		}
		if err := btn.Click(); err != nil {
			return retry.RetryableError(fmt.Errorf("plan click: %w", err))
		}
		if _, err := page.WaitFor(sel.Calendar.Cell, portal.StateVisible, to.WaitSelector); err != nil {
			return retry.RetryableError(fmt.Errorf("calendar cells: %w", err))
		}
		return nil
	})
	if err == nil || ctx.Err() != nil {
		return err
	}
	if t.deps.Options.CalendarReopenFallback {
		return fmt.Errorf("calendar did not open: %w", err)
	}
	return fmt.Errorf("%w: calendar did not open: %v", errPermanent, err)
}

func (t *task) closeCalendar(page portal.Page) {
	btn, err := page.Query(t.deps.Portal.Selectors.Calendar.CloseButton)
	if err != nil {
		return
	}
	if err := btn.Click(); err != nil {
		t.log.Debugw("calendar close click failed", "error", err)
	}
}

// discoverSlots reads every rendered calendar cell into a slot. Cells with
// no readable date or coefficient are skipped rather than failing the read;
// a half-rendered calendar just yields fewer candidates this poll.
func (t *task) discoverSlots(page portal.Page) ([]booking.CalendarSlot, error) {
	sel := t.deps.Portal.Selectors.Calendar
	cells, err := page.QueryAll(sel.Cell)
	if err != nil {
		return nil, fmt.Errorf("calendar cells: %w", err)
	}

	slots := make([]booking.CalendarSlot, 0, len(cells))
	for _, cell := range cells {
		date, err := t.cellDate(cell)
		if err != nil {
			continue
		}
		slot := booking.CalendarSlot{Date: date, Ref: cell}
		if class, err := cell.Attribute("class"); err == nil && strings.Contains(class, sel.DisabledClass) {
			slot.Disabled = true
			slots = append(slots, slot)
			continue
		}
		coefEl, err := cell.Query(sel.Coefficient)
		if err != nil {
			continue
		}
		text, err := coefEl.Text()
		if err != nil {
			continue
		}
		coef, err := booking.ParseCoefficient(text, t.deps.Portal.FreeLabel)
		if err != nil {
			t.log.Debugw("unreadable coefficient, skipping cell", "date", date, "text", text)
			continue
		}
		slot.Coefficient = coef
		slots = append(slots, slot)
	}
	return slots, nil
}

// cellDate reads the date label of a cell, keeping only the date part of
// text like "10 декабря, вт".
func (t *task) cellDate(cell portal.Element) (string, error) {
	sel := t.deps.Portal.Selectors.Calendar
	container, err := cell.Query(sel.DateContainer)
	if err != nil {
		return "", err
	}
	label, err := container.Query(sel.DateText)
	if err != nil {
		return "", err
	}
	text, err := label.Text()
	if err != nil {
		return "", err
	}
	date := strings.TrimSpace(strings.Split(text, ",")[0])
	if date == "" {
		return "", fmt.Errorf("empty date label")
	}
	return date, nil
}

// selectSlot hovers the chosen cell and clicks the select control that the
// hover reveals.
func (t *task) selectSlot(page portal.Page, slot booking.CalendarSlot) error {
	cell, ok := slot.Ref.(portal.Element)
	if !ok {
		return fmt.Errorf("%w: slot %s has no live cell handle", errPermanent, slot.Date)
	}
	sel := t.deps.Portal.Selectors.Calendar
	to := t.deps.Portal.Timeouts

	if err := cell.Hover(); err != nil {
		return fmt.Errorf("hover %s: %w", slot.Date, err)
	}
	btn, err := page.WaitFor(sel.SelectButton, portal.StateVisible, to.WaitSelector)
	if err != nil {
		return fmt.Errorf("select control: %w", err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("select %s: %w", slot.Date, err)
	}
	t.log.Infow("slot selected", "date", slot.Date, "coefficient", slot.Coefficient)
	return nil
}

// schedule clicks the final booking control and records the attempt. The
// attempt counter moves whether or not the portal ends up confirming.
func (t *task) schedule(ctx context.Context, page portal.Page) error {
	sel := t.deps.Portal.Selectors.Calendar
	to := t.deps.Portal.Timeouts

	btn, err := page.WaitFor(sel.BookButton, portal.StateVisible, to.WaitSelector)
	if err != nil {
		return fmt.Errorf("book control: %w", err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("book click: %w", err)
	}
	metrics.BookingAttemptsTotal.Inc()
	if err := t.deps.Store.RecordAttempt(ctx, t.account.ID, t.supply.PreorderID); err != nil {
		t.log.Warnw("record attempt", "error", err)
	}
	t.log.Info("booking submitted")
	return nil
}

// confirm watches the page URL for the reservation id the portal issues on
// success. The URL is the authoritative signal; the reservation title and
// status badge are checked afterwards for the success notification only,
// and the booked state stands even if they never render.
func (t *task) confirm(ctx context.Context, page portal.Page, slot booking.CalendarSlot) error {
	to := t.deps.Portal.Timeouts
	deadline := time.Now().Add(to.BookWait)

	for {
		if id := reservationID(page.URL()); id != "" {
			if err := t.deps.Store.MarkBooked(ctx, t.account.ID, t.supply.PreorderID, id); err != nil {
				return fmt.Errorf("mark booked: %w", err)
			}
			metrics.BookingsTotal.Inc()
			t.log.Infow("booked", "reservation", id, "date", slot.Date)
			t.confirmVisuals(ctx, page, slot, id)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no booking confirmation within %s", to.BookWait)
		}
		if !sleep(ctx, time.Second) {
			return ctx.Err()
		}
	}
}

func (t *task) confirmVisuals(ctx context.Context, page portal.Page, slot booking.CalendarSlot, id string) {
	sel := t.deps.Portal.Selectors.Booking
	to := t.deps.Portal.Timeouts

	if _, err := page.WaitFor(sel.ReservationTitle, portal.StateVisible, to.WaitSelector); err != nil {
		t.log.Warnw("reservation title not rendered", "error", err)
		return
	}
	if _, err := page.WaitFor(sel.StatusBadge, portal.StateVisible, to.WaitSelector); err != nil {
		t.log.Warnw("reservation status not rendered", "error", err)
		return
	}
	t.deps.Notify.Notify(ctx, t.account.ID,
		fmt.Sprintf("Supply %s booked on %s, reservation %s", t.supply.PreorderID, slot.Date, id))
}

// reservationID pulls the supplyId query value out of a portal URL, empty
// when the URL carries none.
func reservationID(url string) string {
	const marker = "supplyId="
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	id := url[i+len(marker):]
	if j := strings.IndexAny(id, "&#"); j >= 0 {
		id = id[:j]
	}
	return id
}
