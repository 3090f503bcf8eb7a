package store

import "errors"

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDoctorNotFound     = errors.New("doctor not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrReferenceNotFound  = errors.New("reference not found")
	ErrSessionNotFound    = errors.New("session not found")

	ErrInvalidInterval = errors.New("invalid slot interval")
	ErrSlotMisaligned  = errors.New("requested time not aligned to slot interval")
	ErrPastDate        = errors.New("requested date is in the past")
	ErrWeekClosed      = errors.New("week is closed for booking")

	ErrCurrentWeekLocked       = errors.New("current week interval locked by existing bookings")
	ErrCannotCloseWithBookings = errors.New("cannot close a week with existing bookings")

	ErrNotPending            = errors.New("booking is not pending")
	ErrNotCancellable        = errors.New("booking is not cancellable")
	ErrCannotCancelActive    = errors.New("ticket already called or in progress")
	ErrNoTicket              = errors.New("no ticket available")
	ErrNotNextInLine         = errors.New("ticket is not next in line")
	ErrInvalidState          = errors.New("invalid ticket state")
	ErrImmutableAfterStart   = errors.New("doctor cannot change after consultation start")
	ErrDoctorDepartmentMatch = errors.New("doctor belongs to a different department")

	ErrBusy         = errors.New("department busy")
	ErrAccessDenied = errors.New("access denied")
)
