package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"sicakap/pkg/contracts"
	httputil "sicakap/pkg/http"
	"sicakap/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

const readyCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	checkers []contracts.Checker
	log      *logger.Logger
}

func NewHealthHandler(log *logger.Logger, checkers ...contracts.Checker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		log:      log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready pings every dependency concurrently and reports each one.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	var mu sync.Mutex
	checks := make(map[string]string, len(h.checkers))

	var g errgroup.Group
	for _, checker := range h.checkers {
		checker := checker
		g.Go(func() error {
			err := checker.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[checker.Name()] = "error"
				return err
			}
			checks[checker.Name()] = "ok"
			return nil
		})
	}

	status, code := "ready", http.StatusOK
	if err := g.Wait(); err != nil {
		h.log.Error("Readiness check failed",
			"error", err,
			"path", r.URL.Path,
		)
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	if err := httputil.WriteJSON(w, code, HealthResponse{
		Status: status,
		Checks: checks,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
