package errors

import "errors"

var (
	ErrNumberMismatch = errors.New("registration number does not match the held booking")

	ErrDateMismatch = errors.New("registration date does not match the held booking")

	ErrInvalidServiceCode = errors.New("service code must be one of P, D, B, BP, PSD, L")
)
