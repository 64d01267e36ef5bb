package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by storage, services and transports. Wrap them with
// fmt.Errorf("%w: ...") and inspect with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid request")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// Storage errors returned by every Store implementation.
var (
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("item %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("item request %w", ErrNotFound)
	ErrEmailTaken      = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrBookingDecided  = fmt.Errorf("%w: booking already processed", ErrInvalid)
)
