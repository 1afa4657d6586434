package handler

import (
	"context"
	"errors"
	"net/http"

	"sicakap/internal/booking/service"
	apperrors "sicakap/pkg/errors"
	httputil "sicakap/pkg/http"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

type Coordinator interface {
	EnterInputContext(ctx context.Context) (*service.Snapshot, error)
	LeaveInputContext(ctx context.Context) *service.Snapshot
	Book(ctx context.Context) (*service.Booking, error)
	SwitchDate(ctx context.Context, date model.SystemDate) (*service.Snapshot, error)
	ResetDaily(ctx context.Context) (*service.Snapshot, error)
	ResetBookings(ctx context.Context) (*service.Snapshot, error)
	RetryConfirm(ctx context.Context) (*service.AdvanceResult, error)
	Snapshot() *service.Snapshot
}

// RangeSettings is the registry's range configuration and per-date usage.
type RangeSettings interface {
	Settings(ctx context.Context) (*model.RegistrationRange, error)
	UpdateSettings(ctx context.Context, update model.RangeUpdate) error
	DateStatistics(ctx context.Context) ([]model.DateStatistic, error)
}

type SettingsView struct {
	Range      *model.RegistrationRange `json:"range"`
	Health     string                   `json:"health"`
	Statistics []model.DateStatistic    `json:"statistics"`
}

// ConfirmView reports a retried confirm and the booking that followed it.
type ConfirmView struct {
	Confirmed     int              `json:"confirmed"`
	Next          *service.Booking `json:"next,omitempty"`
	NextError     string           `json:"next_error,omitempty"`
	NextErrorCode string           `json:"next_error_code,omitempty"`
}

type BookingHandler struct {
	coordinator Coordinator
	settings    RangeSettings
	validate    *validator.Validate
	log         *logger.Logger
}

func NewBookingHandler(coordinator Coordinator, settings RangeSettings, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		coordinator: coordinator,
		settings:    settings,
		validate:    validator.New(),
		log:         log,
	}
}

func (h *BookingHandler) EnterInput(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, err := h.coordinator.EnterInputContext(r.Context())
	h.writeSnapshot(w, "EnterInput", snap, err)
}

func (h *BookingHandler) LeaveInput(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := h.coordinator.LeaveInputContext(r.Context())
	h.writeSnapshot(w, "LeaveInput", snap, nil)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	booking, err := h.coordinator.Book(r.Context())
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Book", "operation", "WriteSuccess", "error", err)
	}
}

// RetryConfirm settles a saved number whose confirm failed and books the next one.
func (h *BookingHandler) RetryConfirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.coordinator.RetryConfirm(r.Context())
	if err != nil {
		h.writeError(w, "RetryConfirm", err)
		return
	}

	view := ConfirmView{Confirmed: result.Confirmed, Next: result.Next}
	if result.NextErr != nil {
		appErr := apperrors.AsAppError(result.NextErr)
		view.NextError = appErr.Message
		view.NextErrorCode = appErr.Code
	}
	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "RetryConfirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) SwitchDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SwitchDateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "SwitchDate", err)
		return
	}

	date, err := model.ParseSystemDate(string(req.Date))
	if err != nil {
		h.writeError(w, "SwitchDate", apperrors.InvalidInput(err.Error()))
		return
	}

	snap, err := h.coordinator.SwitchDate(r.Context(), date)
	h.writeSnapshot(w, "SwitchDate", snap, err)
}

func (h *BookingHandler) ResetDaily(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, err := h.coordinator.ResetDaily(r.Context())
	h.writeSnapshot(w, "ResetDaily", snap, err)
}

func (h *BookingHandler) ResetBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, err := h.coordinator.ResetBookings(r.Context())
	h.writeSnapshot(w, "ResetBookings", snap, err)
}

// GetSettings reads the range and the per-date statistics concurrently.
func (h *BookingHandler) GetSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var view SettingsView

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		rng, err := h.settings.Settings(ctx)
		if err != nil {
			return err
		}
		view.Range = rng
		view.Health = rng.Health()
		return nil
	})
	g.Go(func() error {
		stats, err := h.settings.DateStatistics(ctx)
		if err != nil {
			return err
		}
		view.Statistics = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		h.writeError(w, "GetSettings", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSettings", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.RangeUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateSettings", err)
		return
	}

	if err := h.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		details := map[string]any{"error": err.Error()}
		if errors.As(err, &validationErrs) {
			fields := make(map[string]string, len(validationErrs))
			for _, fe := range validationErrs {
				fields[fe.Field()] = fe.Tag()
			}
			details = map[string]any{"fields": fields}
		}
		h.writeError(w, "UpdateSettings", apperrors.Validation("Range settings are invalid", details))
		return
	}

	if err := h.settings.UpdateSettings(r.Context(), update); err != nil {
		h.writeError(w, "UpdateSettings", err)
		return
	}

	h.log.Info("Registration range updated", "start_number", update.StartNumber, "end_number", update.EndNumber)
	httputil.WriteNoContent(w)
}

func (h *BookingHandler) writeSnapshot(w http.ResponseWriter, handler string, snap *service.Snapshot, err error) {
	if err != nil {
		h.writeError(w, handler, err)
		return
	}
	if err := httputil.WriteSuccess(w, snap); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/input/enter", h.EnterInput)
	router.POST("/api/v1/input/leave", h.LeaveInput)
	router.POST("/api/v1/booking", h.Book)
	router.POST("/api/v1/booking/confirm", h.RetryConfirm)
	router.PUT("/api/v1/date", h.SwitchDate)
	router.POST("/api/v1/reset/daily", h.ResetDaily)
	router.POST("/api/v1/reset/bookings", h.ResetBookings)
	router.GET("/api/v1/settings", h.GetSettings)
	router.POST("/api/v1/settings", h.UpdateSettings)
}
