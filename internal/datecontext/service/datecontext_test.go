package service

import (
	"context"
	"errors"
	"sicakap/internal/datecontext/repository"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"testing"
	"time"
)

type mockPreferenceStore struct {
	getFn func(ctx context.Context, key string) (string, error)
	setFn func(ctx context.Context, key, value string) error
}

func (m *mockPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return "", repository.ErrNotFound
}

func (m *mockPreferenceStore) Set(ctx context.Context, key, value string) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func fixedClock(date string) func() time.Time {
	t, _ := time.Parse(model.DateLayout, date)
	return func() time.Time { return t.Add(10 * time.Hour) }
}

func TestResolveDefaultDate(t *testing.T) {
	tests := []struct {
		name       string
		lastAccess model.SystemDate
		current    model.SystemDate
		today      model.SystemDate
		wantDate   model.SystemDate
		wantNewDay bool
	}{
		{
			name:       "rollover ignores a stored preference from another day",
			lastAccess: "2025-08-10",
			current:    "2025-08-09",
			today:      "2025-08-11",
			wantDate:   "2025-08-11",
			wantNewDay: true,
		},
		{
			name:       "same day keeps the preference",
			lastAccess: "2025-08-11",
			current:    "2025-08-09",
			today:      "2025-08-11",
			wantDate:   "2025-08-09",
			wantNewDay: false,
		},
		{
			name:       "same day without preference uses today",
			lastAccess: "2025-08-11",
			today:      "2025-08-11",
			wantDate:   "2025-08-11",
		},
		{
			name:       "first ever access is a new day",
			today:      "2025-08-11",
			wantDate:   "2025-08-11",
			wantNewDay: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, isNewDay := ResolveDefaultDate(tt.lastAccess, tt.current, tt.today)
			if date != tt.wantDate {
				t.Errorf("date = %q, want %q", date, tt.wantDate)
			}
			if isNewDay != tt.wantNewDay {
				t.Errorf("isNewDay = %v, want %v", isNewDay, tt.wantNewDay)
			}
		})
	}
}

func TestDateContext_ResolvePersistsMarkers(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryPreferenceStore()
	_ = store.Set(ctx, repository.KeyLastAccessDate, "2025-08-10")
	_ = store.Set(ctx, repository.KeyCurrentDate, "2025-08-09")
	_ = store.Set(ctx, repository.KeyLastFormDate, "2025-08-09")

	dc := NewDateContext(store, time.UTC, logger.Discard()).WithClock(fixedClock("2025-08-11"))

	res := dc.Resolve(ctx)
	if res.Date != "2025-08-11" || !res.IsNewDay {
		t.Fatalf("Resolve() = %+v, want 2025-08-11 on a new day", res)
	}
	if res.Change == nil || res.Change.From != "2025-08-09" || res.Change.To != "2025-08-11" {
		t.Fatalf("expected change 2025-08-09 -> 2025-08-11, got %+v", res.Change)
	}

	for key, want := range map[string]string{
		repository.KeyLastAccessDate: "2025-08-11",
		repository.KeyCurrentDate:    "2025-08-11",
		repository.KeyLastFormDate:   "2025-08-11",
	} {
		if got, _ := store.Get(ctx, key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}

	again := dc.Resolve(ctx)
	if again.IsNewDay || again.Change != nil {
		t.Errorf("second resolve on the same day should be quiet, got %+v", again)
	}
}

func TestDateContext_SameDayKeepsPreferenceWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryPreferenceStore()
	_ = store.Set(ctx, repository.KeyLastAccessDate, "2025-08-11")
	_ = store.Set(ctx, repository.KeyCurrentDate, "2025-08-05")
	_ = store.Set(ctx, repository.KeyLastFormDate, "2025-08-05")

	dc := NewDateContext(store, time.UTC, logger.Discard()).WithClock(fixedClock("2025-08-11"))
	res := dc.Resolve(ctx)

	if res.Date != "2025-08-05" || res.IsNewDay || res.Change != nil {
		t.Errorf("Resolve() = %+v", res)
	}
	if got, _ := store.Get(ctx, repository.KeyCurrentDate); got != "2025-08-05" {
		t.Errorf("current_date should be untouched, got %q", got)
	}
}

func TestDateContext_StoreFailuresDoNotBlock(t *testing.T) {
	store := &mockPreferenceStore{
		getFn: func(ctx context.Context, key string) (string, error) {
			return "", errors.New("redis: connection refused")
		},
		setFn: func(ctx context.Context, key, value string) error {
			return errors.New("redis: connection refused")
		},
	}

	dc := NewDateContext(store, time.UTC, logger.Discard()).WithClock(fixedClock("2025-08-11"))
	res := dc.Resolve(context.Background())

	if res.Date != "2025-08-11" {
		t.Errorf("Resolve() fell back to %q, want today", res.Date)
	}
}

func TestDateContext_IgnoresMalformedPreference(t *testing.T) {
	store := &mockPreferenceStore{
		getFn: func(ctx context.Context, key string) (string, error) {
			switch key {
			case repository.KeyLastAccessDate:
				return "2025-08-11", nil
			case repository.KeyCurrentDate:
				return "11/08/2025", nil
			}
			return "", repository.ErrNotFound
		},
	}

	dc := NewDateContext(store, time.UTC, logger.Discard()).WithClock(fixedClock("2025-08-11"))
	if res := dc.Resolve(context.Background()); res.Date != "2025-08-11" {
		t.Errorf("Resolve() = %q, want today", res.Date)
	}
}

func TestDateContext_SetPreferred(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryPreferenceStore()
	dc := NewDateContext(store, time.UTC, logger.Discard()).WithClock(fixedClock("2025-08-11"))

	dc.SetPreferred(ctx, "2025-08-12")

	if got := dc.Preferred(ctx); got != "2025-08-12" {
		t.Errorf("Preferred() = %q", got)
	}
	if got, _ := store.Get(ctx, repository.KeyLastFormDate); got != "2025-08-12" {
		t.Errorf("last_form_date = %q", got)
	}
}

func TestDateContext_Zone(t *testing.T) {
	makassar, err := time.LoadLocation("Asia/Makassar")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		loc  *time.Location
		want string
	}{
		{"office zone", makassar, "WITA"},
		{"other zone", time.UTC, "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := NewDateContext(repository.NewMemoryPreferenceStore(), tt.loc, logger.Discard())
			if got := dc.Zone(); got != tt.want {
				t.Errorf("Zone() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateContext_WatchReportsRollover(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewMemoryPreferenceStore()
	_ = store.Set(ctx, repository.KeyLastAccessDate, "2025-08-10")

	day := "2025-08-10"
	clock := make(chan string, 1)
	dc := NewDateContext(store, time.UTC, logger.Discard())
	dc.WithClock(func() time.Time {
		select {
		case d := <-clock:
			day = d
		default:
		}
		return fixedClock(day)()
	})

	changes := make(chan DateChange, 1)
	go dc.Watch(ctx, 5*time.Millisecond, func(_ context.Context, c DateChange) {
		changes <- c
	})

	time.Sleep(20 * time.Millisecond)
	clock <- "2025-08-11"

	select {
	case c := <-changes:
		if c.To != "2025-08-11" || !c.IsNewDay {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rollover not reported")
	}
}
