package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrInternalServerError = errors.New("internal server error")

	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrScheduleNotFound    = fmt.Errorf("schedule %w", ErrNotFound)
	ErrTicketNotFound      = fmt.Errorf("ticket %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)

	// 預約流程
	ErrSuspended            = errors.New("user is suspended")
	ErrDuplicateReservation = errors.New("schedule already reserved by user")
	ErrScheduleFull         = errors.New("schedule is full")
	ErrNoValidTicket        = errors.New("no valid ticket")
	ErrInsufficientTicket   = errors.New("insufficient ticket")
	ErrNotOwner             = errors.New("not the reservation owner")
	ErrAlreadyCancelled     = errors.New("reservation already cancelled")
	ErrCancellationClosed   = errors.New("cancellation window closed")

	// 狀態機
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTooEarly          = fmt.Errorf("lesson cannot start yet: %w", ErrInvalidTransition)
)
