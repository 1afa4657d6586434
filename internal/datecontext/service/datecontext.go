package service

import (
	"context"
	"errors"
	"sicakap/internal/datecontext/repository"
	"sicakap/pkg/locale"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"sync"
	"time"
)

// DateChange reports that the resolved date differs from the last date a form was opened with.
type DateChange struct {
	From     model.SystemDate
	To       model.SystemDate
	IsNewDay bool
}

type Resolution struct {
	Date     model.SystemDate
	Today    model.SystemDate
	IsNewDay bool
	Change   *DateChange
}

// ResolveDefaultDate picks the date a fresh form opens with. A new day always wins over a
// saved preference; otherwise the saved preference is kept.
func ResolveDefaultDate(lastAccess, current, today model.SystemDate) (model.SystemDate, bool) {
	isNewDay := lastAccess != today
	if isNewDay {
		return today, true
	}
	if current.Valid() {
		return current, false
	}
	return today, false
}

// DateContext owns the desk's active SystemDate markers. Store failures are logged and
// never block resolution.
type DateContext struct {
	store repository.PreferenceStore
	loc   *time.Location
	now   func() time.Time
	log   *logger.Logger

	mu sync.Mutex
}

func NewDateContext(store repository.PreferenceStore, loc *time.Location, log *logger.Logger) *DateContext {
	return &DateContext{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   log,
	}
}

// WithClock replaces the wall clock. Used by tests.
func (d *DateContext) WithClock(now func() time.Time) *DateContext {
	d.now = now
	return d
}

func (d *DateContext) Today() model.SystemDate {
	return model.SystemDate(locale.DateIn(d.now(), d.loc))
}

// Zone is the office wall-clock name of the desk's time zone, such as WIB.
func (d *DateContext) Zone() string {
	return locale.ZoneAbbreviation(d.loc.String())
}

func (d *DateContext) Resolve(ctx context.Context) Resolution {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := d.Today()
	lastAccess := d.get(ctx, repository.KeyLastAccessDate)
	current := d.get(ctx, repository.KeyCurrentDate)

	date, isNewDay := ResolveDefaultDate(lastAccess, current, today)
	d.persistAccessMarkers(ctx, today, date, isNewDay)

	res := Resolution{Date: date, Today: today, IsNewDay: isNewDay}

	lastForm := d.get(ctx, repository.KeyLastFormDate)
	if (!lastForm.IsZero() && lastForm != date) || isNewDay {
		res.Change = &DateChange{From: lastForm, To: date, IsNewDay: isNewDay}
	}
	d.set(ctx, repository.KeyLastFormDate, date)

	return res
}

// PersistAccessMarkers records today as last access and, on a new day, today's date as the preference.
func (d *DateContext) PersistAccessMarkers(ctx context.Context, today, resolved model.SystemDate, isNewDay bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.persistAccessMarkers(ctx, today, resolved, isNewDay)
}

func (d *DateContext) persistAccessMarkers(ctx context.Context, today, resolved model.SystemDate, isNewDay bool) {
	d.set(ctx, repository.KeyLastAccessDate, today)
	if isNewDay {
		d.set(ctx, repository.KeyCurrentDate, resolved)
	}
}

// SetPreferred records an operator-chosen date as both the preference and the last form date.
func (d *DateContext) SetPreferred(ctx context.Context, date model.SystemDate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set(ctx, repository.KeyCurrentDate, date)
	d.set(ctx, repository.KeyLastFormDate, date)
}

// Preferred returns the stored preference, or "" when none is readable.
func (d *DateContext) Preferred(ctx context.Context) model.SystemDate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.get(ctx, repository.KeyCurrentDate)
}

// Watch re-resolves whenever the calendar day changes and hands non-nil changes to onChange.
// Blocks until ctx is canceled.
func (d *DateContext) Watch(ctx context.Context, interval time.Duration, onChange func(context.Context, DateChange)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := d.Today()
	d.log.Info("Date rollover watch started", "interval", interval, "today", seen)

	for {
		select {
		case <-ticker.C:
			today := d.Today()
			if today == seen {
				continue
			}
			seen = today
			res := d.Resolve(ctx)
			if res.Change != nil {
				d.log.Info("Day rollover detected", "from", res.Change.From, "to", res.Change.To)
				onChange(ctx, *res.Change)
			}
		case <-ctx.Done():
			d.log.Info("Date rollover watch stopping")
			return
		}
	}
}

func (d *DateContext) get(ctx context.Context, key string) model.SystemDate {
	value, err := d.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			d.log.Warn("Failed to read date preference", "key", key, "error", err)
		}
		return ""
	}
	date := model.SystemDate(value)
	if !date.Valid() {
		d.log.Warn("Ignoring malformed date preference", "key", key, "value", value)
		return ""
	}
	return date
}

func (d *DateContext) set(ctx context.Context, key string, date model.SystemDate) {
	if err := d.store.Set(ctx, key, date.String()); err != nil {
		d.log.Warn("Failed to write date preference", "key", key, "date", date, "error", err)
	}
}
