package errors

import "errors"

var (
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

	ErrNoBooking = errors.New("no registration number is held")

	ErrStaleResponse = errors.New("allocator response arrived after the booking context changed")

	ErrInvalidTicket = errors.New("booking ticket cannot be opened")

	ErrTicketMismatch = errors.New("booking ticket does not match the held number")

	ErrAwaitingConfirm = errors.New("held number is already saved on a record and waits for its confirm")

	ErrNothingPending = errors.New("no saved registration number is waiting for its confirm")

	ErrContextChanged = errors.New("booking context changed while the record was saved")
)
