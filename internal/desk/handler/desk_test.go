package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	bookingservice "sicakap/internal/booking/service"
	"sicakap/internal/events"
	sessionservice "sicakap/internal/session/service"
	"sicakap/pkg/contracts"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type stubBooking struct{ snap *bookingservice.Snapshot }

func (s stubBooking) Snapshot() *bookingservice.Snapshot { return s.snap }

type stubSession struct{ state sessionservice.State }

func (s stubSession) State() sessionservice.State { return s.state }

type stubCalendar struct{ today, preferred model.SystemDate }

func (s stubCalendar) Today() model.SystemDate { return s.today }

func (s stubCalendar) Zone() string { return "WIB" }

func (s stubCalendar) Preferred(ctx context.Context) model.SystemDate { return s.preferred }

func TestState_CombinesBookingSessionAndLastEvent(t *testing.T) {
	recorder := &events.Recorder{Limit: 1}
	recorder.Notify(events.Event{Type: events.NumberBooked, Number: 601, Date: "2025-08-10"})

	h := NewStateHandler(
		stubBooking{snap: &bookingservice.Snapshot{
			State:   bookingservice.StateBooked,
			Booking: &bookingservice.Booking{Number: 601, Date: "2025-08-10"},
		}},
		stubSession{state: sessionservice.State{Phase: sessionservice.PhaseWarning, RemainingTime: 8}},
		stubCalendar{today: "2025-08-10", preferred: "2025-08-09"},
		recorder,
		logger.Discard(),
	)
	router := httprouter.New()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data DeskState `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := CalendarView{Today: "2025-08-10", Zone: "WIB", Preferred: "2025-08-09"}
	if body.Data.Calendar != want {
		t.Errorf("expected calendar %+v, got %+v", want, body.Data.Calendar)
	}
	if body.Data.Booking.Booking.Number != 601 {
		t.Errorf("expected held number 601, got %+v", body.Data.Booking)
	}
	if body.Data.Session.Phase != sessionservice.PhaseWarning {
		t.Errorf("expected warning phase, got %s", body.Data.Session.Phase)
	}
	if body.Data.LastEvent == nil || body.Data.LastEvent.Type != events.NumberBooked {
		t.Errorf("unexpected last event: %+v", body.Data.LastEvent)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		checkers []contracts.Checker
		want     int
	}{
		{"no dependencies", nil, http.StatusOK},
		{
			"all healthy",
			[]contracts.Checker{
				contracts.NewChecker("registry", func(ctx context.Context) error { return nil }),
				contracts.NewChecker("redis", func(ctx context.Context) error { return nil }),
			},
			http.StatusOK,
		},
		{
			"registry down",
			[]contracts.Checker{
				contracts.NewChecker("registry", func(ctx context.Context) error { return errors.New("refused") }),
				contracts.NewChecker("redis", func(ctx context.Context) error { return nil }),
			},
			http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(logger.Discard(), tt.checkers...).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}

			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Checks) != len(tt.checkers) {
				t.Errorf("expected %d checks, got %v", len(tt.checkers), body.Checks)
			}
		})
	}
}
