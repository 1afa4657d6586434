package service

import (
	"context"
	"fmt"
	bookingerrors "sicakap/internal/booking/errors"
	dateservice "sicakap/internal/datecontext/service"
	"sicakap/internal/events"
	apperrors "sicakap/pkg/errors"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"sync"
	"time"
)

type State string

const (
	StateIdle      State = "idle"
	StateBooked    State = "booked"
	StateConfirmed State = "confirmed"
)

const defaultReleaseTimeout = 5 * time.Second

// DatePreferences is the part of the date context the coordinator drives.
type DatePreferences interface {
	Resolve(ctx context.Context) dateservice.Resolution
	SetPreferred(ctx context.Context, date model.SystemDate)
}

type TicketSealer interface {
	Seal(date string, number int) (string, error)
	Open(token string) (string, int, error)
}

// Booking is the registration number currently held by the desk. PendingConfirm marks a number
// already saved on a record whose confirm has not gone through yet.
type Booking struct {
	Number         int              `json:"reg_number"`
	Date           model.SystemDate `json:"date"`
	Status         model.BookStatus `json:"status"`
	Ticket         string           `json:"ticket,omitempty"`
	BookedAt       time.Time        `json:"booked_at"`
	PendingConfirm bool             `json:"pending_confirm,omitempty"`
}

// Claim pins the booking context a record was saved under.
type Claim struct {
	epoch       uint64
	inputActive bool
	booking     *Booking
}

type Snapshot struct {
	State       State            `json:"state"`
	Booking     *Booking         `json:"booking,omitempty"`
	Date        model.SystemDate `json:"date"`
	ActiveDate  model.SystemDate `json:"active_date,omitempty"`
	InputActive bool             `json:"input_active"`
	Exhausted   bool             `json:"exhausted"`
}

// AdvanceResult reports a confirm-and-advance. Confirmed is zero when nothing held was confirmed.
type AdvanceResult struct {
	Confirmed  int
	ConfirmErr error
	Next       *Booking
	NextErr    error
}

// Coordinator keeps at most one live registration number per desk session,
// consistent with the date the allocator is switched to.
//
// Operator-driven operations are serialized through ops. Abandon skips ops and
// only takes mu, so a hung allocator call can never block logout or expiry.
// Every change of ownership bumps epoch; a book response that lands after the
// epoch moved is released instead of applied.
type Coordinator struct {
	allocator      Allocator
	prefs          DatePreferences
	observer       events.Observer
	sealer         TicketSealer
	log            *logger.Logger
	releaseTimeout time.Duration
	now            func() time.Time

	ops chan struct{}

	mu          sync.Mutex
	state       State
	booking     *Booking
	formDate    model.SystemDate
	activeDate  model.SystemDate
	inputActive bool
	exhausted   bool
	epoch       uint64
}

func NewCoordinator(allocator Allocator, prefs DatePreferences, observer events.Observer, sealer TicketSealer, log *logger.Logger) *Coordinator {
	if observer == nil {
		observer = events.ObserverFunc(func(events.Event) {})
	}
	return &Coordinator{
		allocator:      allocator,
		prefs:          prefs,
		observer:       observer,
		sealer:         sealer,
		log:            log,
		releaseTimeout: defaultReleaseTimeout,
		now:            time.Now,
		ops:            make(chan struct{}, 1),
		state:          StateIdle,
	}
}

// WithReleaseTimeout bounds each best-effort release.
func (c *Coordinator) WithReleaseTimeout(d time.Duration) *Coordinator {
	if d > 0 {
		c.releaseTimeout = d
	}
	return c
}

// Restore resolves the desk's date at startup and brings the allocator in line with it.
func (c *Coordinator) Restore(ctx context.Context) (*Snapshot, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	res := c.prefs.Resolve(ctx)

	var active model.SystemDate
	rng, err := c.allocator.Settings(ctx)
	if err != nil {
		c.log.Warn("Failed to read registry settings", "error", err)
	} else {
		active = rng.CurrentDate
	}

	c.mu.Lock()
	c.formDate = res.Date
	c.activeDate = active
	c.mu.Unlock()

	c.log.Info("Desk date resolved",
		"date", res.Date,
		"today", res.Today,
		"registry_date", active,
		"new_day", res.IsNewDay,
	)

	if res.Change != nil || active != res.Date {
		if err := c.switchLocked(ctx, res.Date); err != nil {
			return c.Snapshot(), err
		}
	}
	return c.Snapshot(), nil
}

// EnterInputContext marks the input form open and makes sure a number is held for its date.
func (c *Coordinator) EnterInputContext(ctx context.Context) (*Snapshot, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	c.mu.Lock()
	c.inputActive = true
	date := c.formDate
	c.mu.Unlock()

	_, err := c.ensureBookedLocked(ctx, date)
	return c.Snapshot(), err
}

// LeaveInputContext closes the input form and gives the held number back.
func (c *Coordinator) LeaveInputContext(ctx context.Context) *Snapshot {
	c.Abandon(ctx)
	return c.Snapshot()
}

// Book reserves a number for the current form date, switching the allocator first when needed.
func (c *Coordinator) Book(ctx context.Context) (*Booking, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	c.mu.Lock()
	date := c.formDate
	c.mu.Unlock()
	return c.ensureBookedLocked(ctx, date)
}

// EnsureBooked returns the held number for date, booking one when none is held.
func (c *Coordinator) EnsureBooked(ctx context.Context, date model.SystemDate) (*Booking, error) {
	if !date.Valid() {
		return nil, apperrors.InvalidInput(bookingerrors.ErrInvalidDate.Error())
	}
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()
	return c.ensureBookedLocked(ctx, date)
}

// SwitchDate moves the desk to date: release, switch, then re-book if the form is open.
// A failed switch leaves the previous date in place.
func (c *Coordinator) SwitchDate(ctx context.Context, date model.SystemDate) (*Snapshot, error) {
	if !date.Valid() {
		return nil, apperrors.InvalidInput(bookingerrors.ErrInvalidDate.Error())
	}
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	if err := c.switchLocked(ctx, date); err != nil {
		return c.Snapshot(), err
	}

	if c.isInputActive() {
		if _, err := c.bookLocked(ctx); err != nil {
			return c.Snapshot(), err
		}
	}
	return c.Snapshot(), nil
}

// Abandon releases the held number and leaves the input context.
// It never waits for an in-flight operation.
func (c *Coordinator) Abandon(ctx context.Context) {
	c.mu.Lock()
	c.inputActive = false
	held := c.takeLocked()
	c.mu.Unlock()

	if held != nil {
		c.release(ctx, held, "abandoned")
	}
}

// Claim captures the current booking context. ConfirmAndAdvance only books the next number
// when that context is unchanged.
func (c *Coordinator) Claim() Claim {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Claim{epoch: c.epoch, inputActive: c.inputActive, booking: c.booking}
}

// ConfirmAndAdvance consumes number after its record was persisted under claim, then makes
// exactly one attempt to book the next number.
//
// A failed confirm leaves the held number in place, marked PendingConfirm, and books nothing;
// RetryConfirm or the next booking settles it first. When the context moved since claim
// (abandon, logout, date switch, reset) the number is still confirmed but nothing is booked.
func (c *Coordinator) ConfirmAndAdvance(ctx context.Context, number int, claim Claim) (*AdvanceResult, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	result := &AdvanceResult{}

	c.mu.Lock()
	held := c.booking
	current := c.epoch == claim.epoch && (c.inputActive || !claim.inputActive)
	c.mu.Unlock()

	owned := held != nil && held == claim.booking && held.Number == number

	if err := c.allocator.Confirm(ctx, number); err != nil {
		c.log.Warn("Failed to confirm registration number", "reg_number", number, "error", err)
		result.ConfirmErr = err
		if owned {
			c.mu.Lock()
			if c.booking == held {
				held.PendingConfirm = true
			}
			c.mu.Unlock()
		}
		return result, nil
	}
	result.Confirmed = number

	switch {
	case owned:
		c.consume(held)
	case current && held != nil:
		c.mu.Lock()
		if c.booking == held {
			c.takeLocked()
		}
		c.mu.Unlock()
		c.release(ctx, held, "superseded")
	default:
		c.log.Debug("Registration number confirmed", "reg_number", number)
	}

	if !current {
		c.log.Info("Booking context changed while the record was saved, next number not booked", "reg_number", number)
		result.NextErr = apperrors.StaleState(
			bookingerrors.ErrContextChanged.Error(),
			map[string]any{"reg_number": number},
		)
		return result, nil
	}

	c.advanceLocked(ctx, result)
	return result, nil
}

// RetryConfirm confirms a held number left pending by a failed confirm, then books the next one.
func (c *Coordinator) RetryConfirm(ctx context.Context) (*AdvanceResult, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	held := c.Held()
	if held == nil || !held.PendingConfirm {
		return nil, apperrors.InvalidInput(bookingerrors.ErrNothingPending.Error())
	}

	number, err := c.confirmPendingLocked(ctx)
	if err != nil {
		return nil, err
	}

	result := &AdvanceResult{Confirmed: number}
	c.advanceLocked(ctx, result)
	return result, nil
}

// ResetDaily clears today's bookings at the registry.
func (c *Coordinator) ResetDaily(ctx context.Context) (*Snapshot, error) {
	return c.reset(ctx, "reset_daily", c.allocator.ResetDaily)
}

// ResetBookings clears every outstanding booking at the registry.
func (c *Coordinator) ResetBookings(ctx context.Context) (*Snapshot, error) {
	return c.reset(ctx, "reset_bookings", c.allocator.ResetNumbers)
}

// OnDateChange applies a rollover or a form date change detected by the date context.
func (c *Coordinator) OnDateChange(ctx context.Context, change dateservice.DateChange) {
	if err := c.acquire(ctx); err != nil {
		c.log.Warn("Date change skipped", "to", change.To, "error", err)
		return
	}
	defer c.done()

	c.mu.Lock()
	held := c.booking
	active := c.activeDate
	c.mu.Unlock()

	if change.To != active || (held != nil && held.Date != change.To) {
		if err := c.switchLocked(ctx, change.To); err != nil {
			c.log.Error("Failed to switch registry date", "to", change.To, "error", err)
			return
		}
	}

	if c.isInputActive() {
		if _, err := c.bookLocked(ctx); err != nil {
			c.log.Warn("Failed to book after date change", "date", change.To, "error", err)
		}
	}
}

// CheckTicket verifies that a ticket echoed by the form still names the held number.
func (c *Coordinator) CheckTicket(ticket string) (*Booking, error) {
	if c.sealer == nil {
		return nil, apperrors.StaleState(bookingerrors.ErrInvalidTicket.Error(), nil)
	}
	date, number, err := c.sealer.Open(ticket)
	if err != nil {
		return nil, apperrors.StaleState(bookingerrors.ErrInvalidTicket.Error(), nil)
	}

	c.mu.Lock()
	var held *Booking
	if c.booking != nil {
		b := *c.booking
		held = &b
	}
	c.mu.Unlock()

	if held != nil && held.PendingConfirm {
		return nil, apperrors.StaleState(bookingerrors.ErrAwaitingConfirm.Error(), map[string]any{
			"reg_number": held.Number,
			"date":       held.Date,
		})
	}

	if held == nil || held.Number != number || string(held.Date) != date {
		details := map[string]any{"ticket_reg_number": number, "ticket_date": date}
		if held != nil {
			details["reg_number"] = held.Number
			details["date"] = held.Date
		}
		return nil, apperrors.StaleState(bookingerrors.ErrTicketMismatch.Error(), details)
	}
	return held, nil
}

func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Snapshot{
		State:       c.state,
		Date:        c.formDate,
		ActiveDate:  c.activeDate,
		InputActive: c.inputActive,
		Exhausted:   c.exhausted,
	}
	if c.booking != nil {
		b := *c.booking
		snap.Booking = &b
	}
	return snap
}

// Held returns a copy of the held booking, or nil.
func (c *Coordinator) Held() *Booking {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.booking == nil {
		return nil
	}
	b := *c.booking
	return &b
}

func (c *Coordinator) reset(ctx context.Context, op string, call func(context.Context) error) (*Snapshot, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	c.mu.Lock()
	held := c.takeLocked()
	c.mu.Unlock()
	if held != nil {
		c.release(ctx, held, op)
	}

	if err := call(ctx); err != nil {
		return c.Snapshot(), err
	}
	c.log.Info("Registry numbers reset", "operation", op)

	c.mu.Lock()
	c.exhausted = false
	date := c.formDate
	active := c.inputActive
	c.mu.Unlock()

	if active {
		if _, err := c.ensureBookedLocked(ctx, date); err != nil {
			return c.Snapshot(), err
		}
	}
	return c.Snapshot(), nil
}

// ensureBookedLocked never books while the allocator is switched to a different date. A held
// number still waiting for its confirm is settled before anything else.
func (c *Coordinator) ensureBookedLocked(ctx context.Context, date model.SystemDate) (*Booking, error) {
	if _, err := c.confirmPendingLocked(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	held := c.booking
	active := c.activeDate
	c.mu.Unlock()

	if held != nil && held.Date == date {
		b := *held
		return &b, nil
	}
	if date != active || held != nil {
		if err := c.switchLocked(ctx, date); err != nil {
			return nil, err
		}
	}
	return c.bookLocked(ctx)
}

// switchLocked releases first whatever the outcome, then switches. The form date only
// follows a successful switch.
func (c *Coordinator) switchLocked(ctx context.Context, date model.SystemDate) error {
	c.mu.Lock()
	held := c.takeLocked()
	c.mu.Unlock()
	if held != nil {
		c.release(ctx, held, "date_switch")
	}

	result, err := c.allocator.SwitchDate(ctx, date)
	if err != nil {
		c.log.Error("Failed to switch registry date", "date", date, "error", err)
		return err
	}

	c.mu.Lock()
	previous := c.activeDate
	c.activeDate = result.CurrentDate
	c.formDate = result.CurrentDate
	c.exhausted = false
	c.epoch++
	c.mu.Unlock()

	c.prefs.SetPreferred(ctx, result.CurrentDate)
	c.log.Info("Registry date switched", "from", previous, "to", result.CurrentDate)
	c.emit(events.Event{Type: events.DateSwitched, Date: result.CurrentDate, State: string(StateIdle)})
	return nil
}

func (c *Coordinator) bookLocked(ctx context.Context) (*Booking, error) {
	c.mu.Lock()
	epoch := c.epoch
	date := c.formDate
	c.mu.Unlock()

	result, err := c.allocator.Book(ctx)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeAllocationExhausted) {
			c.log.Warn("Failed to book registration number", "date", date, "error", err)
			return nil, err
		}

		c.mu.Lock()
		var held *Booking
		if c.epoch == epoch {
			held = c.takeLocked()
			c.exhausted = true
		}
		c.mu.Unlock()
		if held != nil {
			c.release(ctx, held, "exhausted")
		}

		c.emit(events.Event{Type: events.NumberExhausted, Date: date, State: string(StateIdle)})
		return nil, apperrors.AllocationExhausted(string(date), upstreamMessage(err))
	}

	booking := &Booking{
		Number:   result.RegNumber,
		Date:     date,
		Status:   result.Status,
		BookedAt: c.now(),
	}
	if c.sealer != nil {
		ticket, err := c.sealer.Seal(string(date), result.RegNumber)
		if err != nil {
			c.log.Error("Failed to seal booking ticket", "reg_number", result.RegNumber, "error", err)
		}
		booking.Ticket = ticket
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Warn("Discarding late booking", "reg_number", result.RegNumber, "date", date)
		c.release(ctx, booking, "late_response")
		return nil, apperrors.StaleState(
			bookingerrors.ErrStaleResponse.Error(),
			map[string]any{"reg_number": result.RegNumber, "date": date},
		)
	}
	previous := c.booking
	c.booking = booking
	c.state = StateBooked
	c.exhausted = false
	c.mu.Unlock()

	if previous != nil && previous.Number != booking.Number {
		c.release(ctx, previous, "replaced")
	}

	c.log.Info("Registration number booked", "reg_number", booking.Number, "date", date, "status", booking.Status)
	c.emit(events.Event{Type: events.NumberBooked, Number: booking.Number, Date: date, State: string(StateBooked)})

	b := *booking
	return &b, nil
}

// advanceLocked books the next number after a confirm and records the outcome in result.
func (c *Coordinator) advanceLocked(ctx context.Context, result *AdvanceResult) {
	next, err := c.bookLocked(ctx)
	if err != nil {
		result.NextErr = err
		c.mu.Lock()
		if c.state == StateConfirmed {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return
	}
	result.Next = next
}

// confirmPendingLocked confirms a held number marked PendingConfirm. It returns 0 when nothing
// was pending; on failure the number stays held.
func (c *Coordinator) confirmPendingLocked(ctx context.Context) (int, error) {
	c.mu.Lock()
	held := c.booking
	pending := held != nil && held.PendingConfirm
	c.mu.Unlock()
	if !pending {
		return 0, nil
	}

	if err := c.allocator.Confirm(ctx, held.Number); err != nil {
		c.log.Warn("Failed to confirm pending registration number", "reg_number", held.Number, "date", held.Date, "error", err)
		return 0, err
	}
	c.consume(held)
	return held.Number, nil
}

// consume drops b after a successful confirm and moves to Confirmed.
func (c *Coordinator) consume(b *Booking) {
	c.mu.Lock()
	if c.booking == b {
		c.booking = nil
		c.state = StateConfirmed
		c.epoch++
	}
	c.mu.Unlock()
	c.emit(events.Event{Type: events.NumberConfirmed, Number: b.Number, Date: b.Date, State: string(StateConfirmed)})
}

// takeLocked drops the held booking and moves to Idle. Callers hold mu.
func (c *Coordinator) takeLocked() *Booking {
	held := c.booking
	c.booking = nil
	c.state = StateIdle
	c.epoch++
	return held
}

// release is best-effort: failures are logged and never returned. A number already saved on a
// record is confirmed instead of returned to the pool.
func (c *Coordinator) release(ctx context.Context, b *Booking, reason string) {
	if b.PendingConfirm {
		if c.settle(ctx, b, reason, c.allocator.Confirm) {
			c.emit(events.Event{Type: events.NumberConfirmed, Number: b.Number, Date: b.Date, State: string(StateIdle), Reason: reason})
		}
		return
	}
	c.emit(events.Event{Type: events.NumberReleased, Number: b.Number, Date: b.Date, State: string(StateIdle), Reason: reason})
	c.settle(ctx, b, reason, c.allocator.Release)
}

func (c *Coordinator) settle(ctx context.Context, b *Booking, reason string, call func(context.Context, int) error) bool {
	rctx, cancel := context.WithTimeout(ctx, c.releaseTimeout)
	defer cancel()

	if err := call(rctx, b.Number); err != nil {
		c.log.Warn("Failed to return registration number",
			"reg_number", b.Number,
			"date", b.Date,
			"reason", reason,
			"error", err,
		)
		return false
	}
	c.log.Debug("Registration number returned", "reg_number", b.Number, "date", b.Date, "reason", reason)
	return true
}

func (c *Coordinator) isInputActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputActive
}

func (c *Coordinator) emit(e events.Event) {
	c.observer.Notify(e)
}

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.ops <- struct{}{}:
		return nil
	case <-ctx.Done():
		return apperrors.Timeout(fmt.Sprintf("booking operation still in progress: %v", ctx.Err()))
	}
}

func (c *Coordinator) done() {
	<-c.ops
}

func upstreamMessage(err error) string {
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		return err.Error()
	}
	if msg, ok := appErr.Details["upstream"].(string); ok {
		return msg
	}
	return appErr.Message
}
