// Package calview drives the payments-due calendar: month navigation, the
// hover summary with its debounced hide, and the day detail modal with its
// confirm and reminder actions.
package calview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gymdash/internal/auth"
	"gymdash/internal/calendar"
	"gymdash/internal/core"
	"gymdash/internal/dues"
	applog "gymdash/internal/log"
	"gymdash/internal/notify"
)

// HoverCloseDelay is how long the summary stays up after the pointer leaves
// both the cell and the popup.
const HoverCloseDelay = 150 * time.Millisecond

// State of the interaction.
type State int

const (
	StateIdle State = iota
	StateHovering
	StateDetailOpen
)

func (s State) String() string {
	switch s {
	case StateHovering:
		return "hovering"
	case StateDetailOpen:
		return "detail_open"
	default:
		return "idle"
	}
}

// EventKind names what the controller just did.
type EventKind string

const (
	EventFetched        EventKind = "fetched"
	EventRefreshed      EventKind = "refreshed"
	EventHoverShown     EventKind = "hover_shown"
	EventHoverHidden    EventKind = "hover_hidden"
	EventModalOpened    EventKind = "modal_opened"
	EventModalClosed    EventKind = "modal_closed"
	EventConfirmed      EventKind = "confirmed"
	EventReminded       EventKind = "reminded"
	EventMutationFailed EventKind = "mutation_failed"
)

// Event is passed to the observer after each transition.
type Event struct {
	Kind      EventKind
	Date      core.Date
	PaymentID string
	Err       error
}

// ErrUnauthenticated is returned by mutations on an anonymous session.
var ErrUnauthenticated = errors.New("calview: session is not authenticated")

// ErrUnknownPayment is returned when an action names a payment that is not
// in the open modal.
var ErrUnknownPayment = errors.New("calview: payment not in open day")

// Deps are the collaborators of a Controller. Session, Sink, Fetcher and
// Mutator are required.
type Deps struct {
	Session  auth.Session
	Sink     notify.Sink
	Fetcher  *dues.Fetcher
	Mutator  dues.Mutator
	Clock    Clock
	Location *time.Location
	Logger   *applog.Logger
	Observer func(Event)
}

// Item is one row of the detail modal.
type Item struct {
	Payment     core.PendingPayment
	DisplayName string
	Amount      string
	Overdue     bool
}

// Modal is the content of the open detail view.
type Modal struct {
	Date     core.Date
	Items    []Item
	Count    int
	TotalCRC int64
}

// Controller holds the calendar state for one viewer.
type Controller struct {
	deps   Deps
	logger *applog.Logger

	mu        sync.Mutex
	month     core.Date
	result    dues.Result
	days      calendar.DayMap
	state     State
	hoverDate core.Date
	hideTimer Timer
	hideGen   uint64
	modalDate core.Date
	busy      map[string]bool
}

// New builds a controller showing month. Nothing is fetched until Load.
func New(deps Deps, month core.Date) (*Controller, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("calview: fetcher is required")
	}
	if deps.Mutator == nil {
		return nil, errors.New("calview: mutator is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("calview: notification sink is required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Logger == nil {
		deps.Logger = applog.Discard()
	}
	return &Controller{
		deps:   deps,
		logger: deps.Logger.WithComponent(applog.ComponentCalendar),
		month:  calendar.StartOfMonth(month),
		days:   calendar.DayMap{},
		busy:   make(map[string]bool),
	}, nil
}

func (c *Controller) emit(e Event) {
	if c.deps.Observer != nil {
		c.deps.Observer(e)
	}
}

// Today is the current calendar day in the controller's location.
func (c *Controller) Today() core.Date {
	return calendar.Today(c.deps.Clock.Now(), c.deps.Location)
}

// Month returns the displayed month.
func (c *Controller) Month() core.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.month
}

// State returns the interaction state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the session the controller acts for.
func (c *Controller) Session() auth.Session {
	return c.deps.Session
}

// Result returns the last fetch outcome.
func (c *Controller) Result() dues.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Loading reports whether the displayed month is being fetched.
func (c *Controller) Loading() bool {
	return c.deps.Fetcher.Loading(c.Month())
}

// Grid lays out the displayed month with today's overdue flags.
func (c *Controller) Grid() calendar.Grid {
	c.mu.Lock()
	month, days := c.month, c.days
	c.mu.Unlock()
	return calendar.BuildGrid(month, c.Today(), days)
}

// Load fetches the displayed month, from cache when possible.
func (c *Controller) Load(ctx context.Context) dues.Result {
	month := c.Month()
	res := c.deps.Fetcher.Month(ctx, month)
	c.apply(month, res)
	c.emit(Event{Kind: EventFetched, Date: month, Err: res.Err})
	return res
}

// Refresh refetches the displayed month bypassing the cache.
func (c *Controller) Refresh(ctx context.Context) dues.Result {
	month := c.Month()
	res := c.deps.Fetcher.Refresh(ctx, month)
	c.apply(month, res)
	c.emit(Event{Kind: EventRefreshed, Date: month, Err: res.Err})
	return res
}

// apply replaces the day map if month is still the displayed one.
func (c *Controller) apply(month core.Date, res dues.Result) {
	days := calendar.Aggregate(res.Payments)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.month.Equal(month) {
		return
	}
	c.result = res
	c.days = days
}

// SetMonth switches the displayed month and fetches it.
func (c *Controller) SetMonth(ctx context.Context, month core.Date) dues.Result {
	c.mu.Lock()
	c.month = calendar.StartOfMonth(month)
	c.days = calendar.DayMap{}
	c.result = dues.Result{}
	c.hideHoverLocked()
	c.mu.Unlock()
	return c.Load(ctx)
}

// NextMonth moves forward one month.
func (c *Controller) NextMonth(ctx context.Context) dues.Result {
	return c.SetMonth(ctx, calendar.AddMonths(c.Month(), 1))
}

// PrevMonth moves back one month.
func (c *Controller) PrevMonth(ctx context.Context) dues.Result {
	return c.SetMonth(ctx, calendar.AddMonths(c.Month(), -1))
}

// GoToday shows the month containing today.
func (c *Controller) GoToday(ctx context.Context) dues.Result {
	return c.SetMonth(ctx, c.Today())
}

// EnterCell starts or keeps a hover on date. Days without pending payments
// and hovering while the modal is open are ignored.
func (c *Controller) EnterCell(date core.Date) bool {
	c.mu.Lock()
	if c.state == StateDetailOpen || c.days.Count(date.Key()) == 0 {
		c.mu.Unlock()
		return false
	}
	c.cancelHideLocked()
	changed := c.state != StateHovering || !c.hoverDate.Equal(date)
	c.state = StateHovering
	c.hoverDate = date
	c.mu.Unlock()

	if changed {
		c.emit(Event{Kind: EventHoverShown, Date: date})
	}
	return true
}

// LeaveCell schedules the hover to hide.
func (c *Controller) LeaveCell() {
	c.scheduleHide()
}

// EnterPopup keeps the hover open while the pointer is on the summary.
func (c *Controller) EnterPopup() {
	c.mu.Lock()
	if c.state == StateHovering {
		c.cancelHideLocked()
	}
	c.mu.Unlock()
}

// LeavePopup schedules the hover to hide.
func (c *Controller) LeavePopup() {
	c.scheduleHide()
}

func (c *Controller) scheduleHide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateHovering {
		return
	}
	c.cancelHideLocked()
	gen := c.hideGen
	date := c.hoverDate
	c.hideTimer = c.deps.Clock.AfterFunc(HoverCloseDelay, func() {
		c.mu.Lock()
		if c.hideGen != gen || c.state != StateHovering {
			c.mu.Unlock()
			return
		}
		c.state = StateIdle
		c.hoverDate = core.Date{}
		c.hideTimer = nil
		c.mu.Unlock()
		c.emit(Event{Kind: EventHoverHidden, Date: date})
	})
}

// cancelHideLocked drops any pending hide. The generation bump makes a timer
// that already fired and is waiting on the lock a no-op.
func (c *Controller) cancelHideLocked() {
	c.hideGen++
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
}

func (c *Controller) hideHoverLocked() {
	c.cancelHideLocked()
	if c.state == StateHovering {
		c.state = StateIdle
		c.hoverDate = core.Date{}
	}
}

// Hover returns the summary under the pointer.
func (c *Controller) Hover() (calendar.Summary, bool) {
	c.mu.Lock()
	if c.state != StateHovering {
		c.mu.Unlock()
		return calendar.Summary{}, false
	}
	date, days := c.hoverDate, c.days
	c.mu.Unlock()
	return days.Summarize(date, c.Today()), true
}

// Summary returns the hover content for date without changing state.
func (c *Controller) Summary(date core.Date) calendar.Summary {
	c.mu.Lock()
	days := c.days
	c.mu.Unlock()
	return days.Summarize(date, c.Today())
}

// ClickCell opens the detail modal for date. It does nothing when the day
// has no pending payments or another modal is open.
func (c *Controller) ClickCell(date core.Date) bool {
	c.mu.Lock()
	if c.state == StateDetailOpen || c.days.Count(date.Key()) == 0 {
		c.mu.Unlock()
		return false
	}
	c.cancelHideLocked()
	c.state = StateDetailOpen
	c.hoverDate = core.Date{}
	c.modalDate = date
	c.mu.Unlock()

	c.emit(Event{Kind: EventModalOpened, Date: date})
	return true
}

// Modal returns the open modal's rows sorted by member name.
func (c *Controller) Modal() (Modal, bool) {
	c.mu.Lock()
	if c.state != StateDetailOpen {
		c.mu.Unlock()
		return Modal{}, false
	}
	date, days := c.modalDate, c.days
	c.mu.Unlock()
	return buildModal(date, days.Items(date.Key()), c.Today()), true
}

func buildModal(date core.Date, payments []core.PendingPayment, today core.Date) Modal {
	m := Modal{Date: date, Items: make([]Item, 0, len(payments))}
	for _, p := range payments {
		m.Items = append(m.Items, Item{
			Payment:     p,
			DisplayName: p.DisplayName(),
			Amount:      core.FormatCRC(p.AmountCRC),
			Overdue:     calendar.IsOverdue(p.DueDate, today),
		})
		m.TotalCRC += p.AmountCRC
	}
	m.Count = len(m.Items)
	SortItems(m.Items)
	return m
}

// SortItems orders rows by display name using Spanish collation, so accented
// names sort next to their unaccented neighbours.
func SortItems(items []Item) {
	col := collate.New(language.Spanish, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b Item) int {
		return col.CompareString(a.DisplayName, b.DisplayName)
	})
}

// Close dismisses the modal.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state != StateDetailOpen {
		c.mu.Unlock()
		return
	}
	date := c.modalDate
	c.state = StateIdle
	c.modalDate = core.Date{}
	c.mu.Unlock()
	c.emit(Event{Kind: EventModalClosed, Date: date})
}

// OverlayClick dismisses the modal like Close.
func (c *Controller) OverlayClick() {
	c.Close()
}

// Busy reports whether an action on paymentID is in flight.
func (c *Controller) Busy(paymentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[paymentID]
}

func (c *Controller) begin(paymentID string) (core.PendingPayment, error) {
	if !c.deps.Session.Authenticated() {
		return core.PendingPayment{}, ErrUnauthenticated
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDetailOpen {
		return core.PendingPayment{}, ErrUnknownPayment
	}
	for _, p := range c.days.Items(c.modalDate.Key()) {
		if p.ID == paymentID {
			if c.busy[paymentID] {
				return core.PendingPayment{}, fmt.Errorf("calview: action on %s already in progress", paymentID)
			}
			c.busy[paymentID] = true
			return p, nil
		}
	}
	return core.PendingPayment{}, ErrUnknownPayment
}

func (c *Controller) end(paymentID string) {
	c.mu.Lock()
	delete(c.busy, paymentID)
	c.mu.Unlock()
}

// Confirm marks a payment of the open day as paid. On success it refreshes
// the month once and then closes the modal. On failure the modal stays open,
// an error notification is sent and nothing is retried.
func (c *Controller) Confirm(ctx context.Context, paymentID string) error {
	p, err := c.begin(paymentID)
	if err != nil {
		c.fail(ctx, paymentID, "No se pudo registrar el pago", err)
		return err
	}
	defer c.end(paymentID)

	if err := c.deps.Mutator.Confirm(ctx, paymentID); err != nil {
		c.fail(ctx, paymentID, "No se pudo registrar el pago", err)
		return err
	}

	c.Refresh(ctx)
	c.Close()

	c.logger.InfoContext(ctx, "Payment confirmed from calendar",
		applog.NewFields().WithPayment(p.ID, p.MemberID, p.AmountCRC, p.DueDate.Key()).ToSlice()...)
	c.deps.Sink.Notify(ctx, notify.PaymentProcessed(p.AmountCRC, p.DisplayName()))
	c.emit(Event{Kind: EventConfirmed, Date: p.DueDate, PaymentID: paymentID})
	return nil
}

// Remind requests a reminder for a payment of the open day. The modal stays
// open and the record is left as fetched.
func (c *Controller) Remind(ctx context.Context, paymentID string) error {
	p, err := c.begin(paymentID)
	if err != nil {
		c.fail(ctx, paymentID, "No se pudo enviar el recordatorio", err)
		return err
	}
	defer c.end(paymentID)

	if err := c.deps.Mutator.Remind(ctx, paymentID); err != nil {
		c.fail(ctx, paymentID, "No se pudo enviar el recordatorio", err)
		return err
	}

	c.deps.Sink.Notify(ctx, notify.ReminderQueued(p.DisplayName()))
	c.emit(Event{Kind: EventReminded, Date: p.DueDate, PaymentID: paymentID})
	return nil
}

func (c *Controller) fail(ctx context.Context, paymentID, title string, err error) {
	c.logger.WarnContext(ctx, "Payment action failed",
		applog.FieldPaymentID, paymentID,
		applog.FieldError, err)
	msg := err.Error()
	switch {
	case errors.Is(err, ErrUnauthenticated):
		msg = "Debes iniciar sesión para realizar esta acción."
	case errors.Is(err, ErrUnknownPayment), errors.Is(err, core.ErrPaymentNotFound):
		msg = "El pago ya no está disponible. Actualiza el calendario."
	}
	c.deps.Sink.Notify(ctx, notify.Error(msg, title))
	c.emit(Event{Kind: EventMutationFailed, PaymentID: paymentID, Err: err})
}
