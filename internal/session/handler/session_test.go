package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sicakap/internal/session/service"
	apperrors "sicakap/pkg/errors"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockMonitor struct {
	activityFunc func(kind service.ActivityKind) (service.State, error)
	extendFunc   func(ctx context.Context) (service.State, error)
}

func (m *mockMonitor) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	return &model.LoginResult{Message: "Login berhasil", User: req.Username}, nil
}

func (m *mockMonitor) Logout(ctx context.Context) service.State {
	return service.State{Phase: service.PhaseLoggedOut}
}

func (m *mockMonitor) Extend(ctx context.Context) (service.State, error) {
	if m.extendFunc != nil {
		return m.extendFunc(ctx)
	}
	return service.State{Phase: service.PhaseActive}, nil
}

func (m *mockMonitor) RecordActivity(kind service.ActivityKind) (service.State, error) {
	if m.activityFunc != nil {
		return m.activityFunc(kind)
	}
	return service.State{Phase: service.PhaseActive}, nil
}

func (m *mockMonitor) CheckSession(ctx context.Context) (*model.SessionStatus, error) {
	return &model.SessionStatus{LoggedIn: true}, nil
}

func (m *mockMonitor) State() service.State {
	return service.State{Phase: service.PhaseActive, User: "petugas"}
}

func serve(t *testing.T, m Monitor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := httprouter.New()
	NewSessionHandler(m, logger.Discard()).RegisterRoutes(router)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestActivity_DefaultsToClickWithoutBody(t *testing.T) {
	var got service.ActivityKind
	m := &mockMonitor{
		activityFunc: func(kind service.ActivityKind) (service.State, error) {
			got = kind
			return service.State{Phase: service.PhaseActive}, nil
		},
	}

	rec := serve(t, m, http.MethodPost, "/api/v1/session/activity", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != service.ActivityClick {
		t.Errorf("expected click, got %q", got)
	}
}

func TestActivity_PassesKind(t *testing.T) {
	var got service.ActivityKind
	m := &mockMonitor{
		activityFunc: func(kind service.ActivityKind) (service.State, error) {
			got = kind
			return service.State{}, nil
		},
	}

	serve(t, m, http.MethodPost, "/api/v1/session/activity", `{"kind":"scroll"}`)
	if got != service.ActivityScroll {
		t.Errorf("expected scroll, got %q", got)
	}
}

func TestExtend_ExpiredSessionIsUnauthorized(t *testing.T) {
	m := &mockMonitor{
		extendFunc: func(ctx context.Context) (service.State, error) {
			return service.State{Phase: service.PhaseLoggedOut}, apperrors.SessionExpired("session could not be extended")
		},
	}

	rec := serve(t, m, http.MethodPost, "/api/v1/session/extend", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogin_ReturnsSessionState(t *testing.T) {
	rec := serve(t, &mockMonitor{}, http.MethodPost, "/api/v1/session/login", `{"username":"petugas","password":"rahasia"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Session.User != "petugas" {
		t.Errorf("expected user petugas, got %q", body.Data.Session.User)
	}
	if body.Data.Message != "Login berhasil" {
		t.Errorf("unexpected message %q", body.Data.Message)
	}
}
