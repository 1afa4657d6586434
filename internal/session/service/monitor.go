package service

import (
	"context"
	"errors"
	"fmt"
	"sicakap/internal/events"
	"sicakap/internal/session/clock"
	apperrors "sicakap/pkg/errors"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Phase string

const (
	PhaseLoggedOut Phase = "logged_out"
	PhaseActive    Phase = "active"
	PhaseWarning   Phase = "warning"
	PhaseExpired   Phase = "expired"
)

type ActivityKind string

const (
	ActivityPointer ActivityKind = "pointer"
	ActivityKey     ActivityKind = "key"
	ActivityScroll  ActivityKind = "scroll"
	ActivityTouch   ActivityKind = "touch"
	ActivityClick   ActivityKind = "click"
)

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityPointer, ActivityKey, ActivityScroll, ActivityTouch, ActivityClick:
		return true
	}
	return false
}

const (
	reasonTimeout      = "timeout"
	reasonLogout       = "logout"
	reasonExtendFailed = "extend_failed"
)

// AuthAPI is the registry's session endpoints.
type AuthAPI interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error)
	Logout(ctx context.Context) error
	CheckSession(ctx context.Context) (*model.SessionStatus, error)
	UpdateActivity(ctx context.Context) error
	ExtendSession(ctx context.Context) (*model.ExtendResult, error)
}

// Releaser gives back whatever registration number the desk holds.
type Releaser interface {
	Abandon(ctx context.Context)
}

type Settings struct {
	Timeout           time.Duration
	WarningLead       time.Duration
	HeartbeatInterval time.Duration
	ExpiryGrace       time.Duration
}

// State is a point-in-time view of the session for the operator API.
type State struct {
	Phase         Phase     `json:"phase"`
	User          string    `json:"user,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	Timeout       int       `json:"session_timeout"`
	WarningLead   int       `json:"warning_time"`
	RemainingTime int       `json:"remaining_time"`
	LastActivity  time.Time `json:"last_activity,omitempty"`
}

// armToken identifies one arm of the warning and expiry timers.
type armToken struct{}

// Monitor drives the session through Active, Warning and Expired.
// All three timers live in one clock.Group so any terminal transition stops them together.
type Monitor struct {
	auth     AuthAPI
	releaser Releaser
	observer events.Observer
	timers   *clock.Group
	defaults Settings
	validate *validator.Validate
	log      *logger.Logger

	mu           sync.Mutex
	phase        Phase
	user         string
	sessionID    string
	timeout      time.Duration
	warningLead  time.Duration
	lastActivity time.Time
	deadline     time.Time
	token        *armToken
}

func NewMonitor(auth AuthAPI, releaser Releaser, observer events.Observer, scheduler clock.Scheduler, defaults Settings, log *logger.Logger) *Monitor {
	if observer == nil {
		observer = events.ObserverFunc(func(events.Event) {})
	}
	return &Monitor{
		auth:        auth,
		releaser:    releaser,
		observer:    observer,
		timers:      clock.NewGroup(scheduler),
		defaults:    defaults,
		validate:    validator.New(),
		log:         log,
		phase:       PhaseLoggedOut,
		timeout:     defaults.Timeout,
		warningLead: defaults.WarningLead,
	}
}

// Login authenticates against the registry and starts the session on success.
func (m *Monitor) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	if err := m.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make(map[string]string, len(validationErrs))
			for _, fe := range validationErrs {
				fields[fe.Field()] = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
			}
			return nil, apperrors.Validation("Login request is invalid", map[string]any{"fields": fields})
		}
		return nil, apperrors.Validation("Login request is invalid", map[string]any{"error": err.Error()})
	}

	result, err := m.auth.Login(ctx, req)
	if err != nil {
		m.log.Warn("Login failed", "username", req.Username, "error", err)
		return nil, err
	}
	if result.User == "" {
		result.User = req.Username
	}

	m.Start(ctx, result)
	return result, nil
}

// Start begins a session. Timeout and warning lead come from the login response when present.
func (m *Monitor) Start(ctx context.Context, result *model.LoginResult) State {
	timeout := m.defaults.Timeout
	if result.SessionTimeout > 0 {
		timeout = time.Duration(result.SessionTimeout) * time.Second
	}
	lead := m.defaults.WarningLead
	if result.WarningTime > 0 {
		lead = time.Duration(result.WarningTime) * time.Second
	}
	if lead >= timeout {
		lead = 0
	}

	sessionID := result.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	m.timers.CancelAll()

	m.mu.Lock()
	m.phase = PhaseActive
	m.user = result.User
	m.sessionID = sessionID
	m.timeout = timeout
	m.warningLead = lead
	m.lastActivity = m.timers.Now()
	m.armLocked()
	state := m.stateLocked()
	m.mu.Unlock()

	if m.defaults.HeartbeatInterval > 0 {
		m.timers.StartHeartbeat(m.defaults.HeartbeatInterval, m.heartbeat)
	}

	m.log.Info("Session started",
		"user", result.User,
		"session_id", sessionID,
		"timeout", timeout,
		"warning_lead", lead,
	)
	m.emit(events.Event{Type: events.SessionStarted, State: string(PhaseActive)})
	return state
}

// RecordActivity notes operator input. Activity during the warning resumes the session
// and restarts both timers; during Active it only moves lastActivity.
func (m *Monitor) RecordActivity(kind ActivityKind) (State, error) {
	if !kind.Valid() {
		return State{}, apperrors.InvalidInput(fmt.Sprintf("unknown activity kind %q", kind))
	}

	m.mu.Lock()
	switch m.phase {
	case PhaseActive:
		m.lastActivity = m.timers.Now()
		state := m.stateLocked()
		m.mu.Unlock()
		return state, nil

	case PhaseWarning:
		m.lastActivity = m.timers.Now()
		m.phase = PhaseActive
		m.armLocked()
		state := m.stateLocked()
		m.mu.Unlock()

		m.log.Info("Session resumed by activity", "kind", kind)
		m.emit(events.Event{Type: events.SessionResumed, State: string(PhaseActive), Reason: string(kind)})
		return state, nil

	default:
		m.mu.Unlock()
		return State{}, apperrors.SessionExpired("no active session")
	}
}

// Extend asks the registry for more time. A failed extension ends the session.
func (m *Monitor) Extend(ctx context.Context) (State, error) {
	m.mu.Lock()
	phase := m.phase
	m.mu.Unlock()
	if phase != PhaseActive && phase != PhaseWarning {
		return State{}, apperrors.SessionExpired("no active session")
	}

	result, err := m.auth.ExtendSession(ctx)
	if err != nil {
		m.log.Warn("Session extension failed", "error", err)
		m.terminate(ctx, reasonExtendFailed)
		return m.State(), apperrors.SessionExpired("session could not be extended")
	}

	m.mu.Lock()
	if m.phase != PhaseActive && m.phase != PhaseWarning {
		m.mu.Unlock()
		return m.State(), apperrors.SessionExpired("session ended during extension")
	}
	if result.RemainingTime > 0 {
		m.timeout = time.Duration(result.RemainingTime) * time.Second
		if m.warningLead >= m.timeout {
			m.warningLead = 0
		}
	}
	m.lastActivity = m.timers.Now()
	m.phase = PhaseActive
	m.armLocked()
	state := m.stateLocked()
	m.mu.Unlock()

	m.log.Info("Session extended", "timeout", state.Timeout)
	m.emit(events.Event{Type: events.SessionResumed, State: string(PhaseActive), Reason: "extended"})
	return state, nil
}

// Logout releases the held number, logs out at the registry and clears the session.
func (m *Monitor) Logout(ctx context.Context) State {
	m.terminate(ctx, reasonLogout)
	return m.State()
}

// CheckSession asks the registry whether the cookie session is alive and adopts it when the
// desk has none running.
func (m *Monitor) CheckSession(ctx context.Context) (*model.SessionStatus, error) {
	status, err := m.auth.CheckSession(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	running := m.phase == PhaseActive || m.phase == PhaseWarning
	m.mu.Unlock()

	if status.LoggedIn && !running {
		m.Start(ctx, &model.LoginResult{User: status.User})
	}
	return status, nil
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// armLocked restarts the warning and expiry timers from now. Callers hold mu.
func (m *Monitor) armLocked() {
	token := &armToken{}
	m.token = token
	m.deadline = m.timers.Now().Add(m.timeout)
	m.timers.Arm(
		m.timeout-m.warningLead,
		m.timeout,
		func() { m.onWarning(token) },
		func() { m.onExpiry(token) },
	)
}

func (m *Monitor) onWarning(token *armToken) {
	m.mu.Lock()
	if m.token != token || m.phase != PhaseActive || m.warningLead <= 0 {
		m.mu.Unlock()
		return
	}
	m.phase = PhaseWarning
	countdown := int(m.warningLead / time.Second)
	m.mu.Unlock()

	m.log.Info("Session about to expire", "countdown", countdown)
	m.emit(events.Event{Type: events.SessionWarning, State: string(PhaseWarning), Countdown: countdown})
}

func (m *Monitor) onExpiry(token *armToken) {
	m.mu.Lock()
	live := m.token == token && (m.phase == PhaseActive || m.phase == PhaseWarning)
	m.mu.Unlock()
	if !live {
		return
	}
	m.terminate(context.Background(), reasonTimeout)
}

func (m *Monitor) heartbeat() {
	timeout := m.defaults.HeartbeatInterval
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := m.auth.UpdateActivity(ctx); err != nil {
		m.log.Warn("Activity heartbeat failed", "error", err)
	}
}

// terminate ends the session in a fixed order: stop every timer, release the held number and
// log out within the grace period, clear state, then ask for a new login. The grace bounds the
// wait; a hung release never keeps the session alive. Without a running session the held number
// is still released.
func (m *Monitor) terminate(ctx context.Context, reason string) {
	m.timers.CancelAll()

	m.mu.Lock()
	running := m.phase == PhaseActive || m.phase == PhaseWarning
	if running {
		m.phase = PhaseExpired
		m.token = nil
	}
	user := m.user
	m.mu.Unlock()

	if !running {
		m.cleanup(ctx, user)
		return
	}

	if reason != reasonLogout {
		m.log.Warn("Session expired", "user", user, "reason", reason)
		m.emit(events.Event{Type: events.SessionExpired, State: string(PhaseExpired), Reason: reason})
	}

	m.cleanup(ctx, user)

	m.mu.Lock()
	m.phase = PhaseLoggedOut
	m.user = ""
	m.sessionID = ""
	m.timeout = m.defaults.Timeout
	m.warningLead = m.defaults.WarningLead
	m.lastActivity = time.Time{}
	m.deadline = time.Time{}
	m.mu.Unlock()

	m.log.Info("Session closed", "user", user, "reason", reason)
	m.emit(events.Event{Type: events.LoginRequired, State: string(PhaseLoggedOut), Reason: reason})
}

// cleanup abandons the held number, then logs out at the registry, giving up after the grace period.
func (m *Monitor) cleanup(ctx context.Context, user string) {
	graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.defaults.ExpiryGrace)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if m.releaser != nil {
			m.releaser.Abandon(graceCtx)
		}
		if err := m.auth.Logout(graceCtx); err != nil {
			m.log.Warn("Registry logout failed", "user", user, "error", err)
		}
	}()

	select {
	case <-done:
	case <-graceCtx.Done():
		m.log.Warn("Session cleanup exceeded grace period, forcing logout", "grace", m.defaults.ExpiryGrace)
	}
}

func (m *Monitor) stateLocked() State {
	state := State{
		Phase:        m.phase,
		User:         m.user,
		SessionID:    m.sessionID,
		Timeout:      int(m.timeout / time.Second),
		WarningLead:  int(m.warningLead / time.Second),
		LastActivity: m.lastActivity,
	}
	if !m.deadline.IsZero() {
		remaining := m.deadline.Sub(m.timers.Now())
		if remaining > 0 {
			state.RemainingTime = int(remaining.Round(time.Second) / time.Second)
		}
	}
	return state
}

func (m *Monitor) emit(e events.Event) {
	m.observer.Notify(e)
}
