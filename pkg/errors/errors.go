package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeAllocationExhausted = "ALLOCATION_EXHAUSTED"
	CodeNetworkFailure      = "NETWORK_FAILURE"
	CodeStaleState          = "STALE_STATE"
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeUpstream            = "UPSTREAM_ERROR"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// AllocationExhausted means the registration range for date has no free numbers left.
// Not retryable until the range settings change or the day is reset.
func AllocationExhausted(date, upstreamMessage string) *AppError {
	return &AppError{
		Code:       CodeAllocationExhausted,
		Message:    fmt.Sprintf("no registration numbers remain for %s", date),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"date":     date,
			"upstream": upstreamMessage,
		},
	}
}

func NetworkFailure(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeNetworkFailure,
		Message:    fmt.Sprintf("registry unreachable during %s", operation),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

func StaleState(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeStaleState,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func SessionExpired(message string) *AppError {
	return &AppError{
		Code:       CodeSessionExpired,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Upstream(operation string, status int, message string) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    fmt.Sprintf("registry rejected %s: %s", operation, message),
		HTTPStatus: http.StatusBadGateway,
		Details: map[string]any{
			"operation":       operation,
			"upstream_status": status,
		},
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Retryable reports whether the operator should be offered a retry for err.
func Retryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeNetworkFailure, CodeTimeout, CodeUpstream, CodeStaleState:
		return true
	default:
		return false
	}
}
