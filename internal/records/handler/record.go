package handler

import (
	"net/http"

	"sicakap/internal/records/service"
	httputil "sicakap/pkg/http"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RecordHandler struct {
	service service.RecordService
	log     *logger.Logger
}

func NewRecordHandler(service service.RecordService, log *logger.Logger) *RecordHandler {
	return &RecordHandler{
		service: service,
		log:     log,
	}
}

func (h *RecordHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Submit", err)
		return
	}

	result, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Submit", err)
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Submit", "operation", "WriteCreated", "error", err)
	}
}

func (h *RecordHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, perPage, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.RecordFilter{
		Search:      query.Get("search"),
		Status:      query.Get("status"),
		ServiceCode: query.Get("service_code"),
		StartDate:   query.Get("start_date"),
		EndDate:     query.Get("end_date"),
		Page:        page,
		PerPage:     perPage,
	}

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, records, page, perPage); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *RecordHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractID(ps)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	record, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, record); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractID(ps)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var record model.Record
	if err := httputil.DecodeJSON(r, &record); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := h.service.Update(r.Context(), id, &record); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractID(ps)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RecordHandler) Templates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	templates, err := h.service.Templates(r.Context(), r.URL.Query().Get("service_code"))
	if err != nil {
		h.writeError(w, "Templates", err)
		return
	}

	if err := httputil.WriteSuccess(w, templates); err != nil {
		h.log.Error("failed to write success response", "handler", "Templates", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RecordHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RecordHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/records", h.Submit)
	router.GET("/api/v1/records", h.GetAll)
	router.GET("/api/v1/records/:id", h.GetByID)
	router.PUT("/api/v1/records/:id", h.Update)
	router.DELETE("/api/v1/records/:id", h.Delete)
	router.GET("/api/v1/templates", h.Templates)
}
