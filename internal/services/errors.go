package services

import "errors"

// Sentinel errors returned by the services. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidDateRange  = errors.New("check-out must be after check-in")
	ErrNotFound          = errors.New("not found")
	ErrDatesUnavailable  = errors.New("these dates are not available")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyReviewed   = errors.New("listing already reviewed by this user")
)
