package model

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type LoginResult struct {
	Message        string `json:"message"`
	User           string `json:"user"`
	SessionTimeout int    `json:"session_timeout"`
	WarningTime    int    `json:"warning_time"`
	SessionID      string `json:"session_id"`
	Error          string `json:"error,omitempty"`
}

type SessionStatus struct {
	LoggedIn      bool   `json:"logged_in"`
	User          string `json:"user,omitempty"`
	RemainingTime int    `json:"remaining_time,omitempty"`
}

type ExtendResult struct {
	Message        string `json:"message"`
	RemainingTime  int    `json:"remaining_time"`
	SessionTimeout int    `json:"session_timeout"`
}
