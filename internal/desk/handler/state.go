package handler

import (
	"context"
	"net/http"

	bookingservice "sicakap/internal/booking/service"
	"sicakap/internal/events"
	sessionservice "sicakap/internal/session/service"
	httputil "sicakap/pkg/http"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingState interface {
	Snapshot() *bookingservice.Snapshot
}

type SessionState interface {
	State() sessionservice.State
}

type Calendar interface {
	Today() model.SystemDate
	Zone() string
	Preferred(ctx context.Context) model.SystemDate
}

type EventLog interface {
	Last() (events.Event, bool)
}

type CalendarView struct {
	Today     model.SystemDate `json:"today"`
	Zone      string           `json:"zone"`
	Preferred model.SystemDate `json:"preferred,omitempty"`
}

// DeskState is everything the rendering layer needs to redraw the desk.
type DeskState struct {
	Calendar  CalendarView             `json:"calendar"`
	Booking   *bookingservice.Snapshot `json:"booking"`
	Session   sessionservice.State     `json:"session"`
	LastEvent *events.Event            `json:"last_event,omitempty"`
}

type StateHandler struct {
	booking  BookingState
	session  SessionState
	calendar Calendar
	events   EventLog
	log      *logger.Logger
}

func NewStateHandler(booking BookingState, session SessionState, calendar Calendar, events EventLog, log *logger.Logger) *StateHandler {
	return &StateHandler{
		booking:  booking,
		session:  session,
		calendar: calendar,
		events:   events,
		log:      log,
	}
}

func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := DeskState{
		Calendar: CalendarView{
			Today:     h.calendar.Today(),
			Zone:      h.calendar.Zone(),
			Preferred: h.calendar.Preferred(r.Context()),
		},
		Booking: h.booking.Snapshot(),
		Session: h.session.State(),
	}
	if last, ok := h.events.Last(); ok {
		state.LastEvent = &last
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "GetState", "operation", "WriteSuccess", "error", err)
	}
}

func (h *StateHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/state", h.Get)
}
