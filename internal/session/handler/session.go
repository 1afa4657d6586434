package handler

import (
	"context"
	"net/http"

	"sicakap/internal/session/service"
	httputil "sicakap/pkg/http"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type Monitor interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error)
	Logout(ctx context.Context) service.State
	Extend(ctx context.Context) (service.State, error)
	RecordActivity(kind service.ActivityKind) (service.State, error)
	CheckSession(ctx context.Context) (*model.SessionStatus, error)
	State() service.State
}

type ActivityRequest struct {
	Kind service.ActivityKind `json:"kind"`
}

type LoginResponse struct {
	Message string        `json:"message"`
	Session service.State `json:"session"`
}

type SessionHandler struct {
	monitor Monitor
	log     *logger.Logger
}

func NewSessionHandler(monitor Monitor, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		monitor: monitor,
		log:     log,
	}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Login", err)
		return
	}

	result, err := h.monitor.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	if err := httputil.WriteSuccess(w, LoginResponse{Message: result.Message, Session: h.monitor.State()}); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := h.monitor.Logout(r.Context())
	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "Logout", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) Extend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state, err := h.monitor.Extend(r.Context())
	if err != nil {
		h.writeError(w, "Extend", err)
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "Extend", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := ActivityRequest{Kind: service.ActivityClick}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Activity", err)
		return
	}

	state, err := h.monitor.RecordActivity(req.Kind)
	if err != nil {
		h.writeError(w, "Activity", err)
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "Activity", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) Check(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status, err := h.monitor.CheckSession(r.Context())
	if err != nil {
		h.writeError(w, "Check", err)
		return
	}

	if err := httputil.WriteSuccess(w, status); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/session/login", h.Login)
	router.POST("/api/v1/session/logout", h.Logout)
	router.POST("/api/v1/session/extend", h.Extend)
	router.POST("/api/v1/session/activity", h.Activity)
	router.GET("/api/v1/session", h.Check)
}
