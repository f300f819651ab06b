// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete an accommodation that still has active bookings. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrAccommodationNotFound indicates that no accommodation row matched.
var ErrAccommodationNotFound = errors.New("accommodation not found")

// ErrBookingNotFound indicates that no booking row matched.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// RoomsExhaustedError is returned by a guarded decrement when the row for
// Date no longer has enough rooms left.  The transaction must be rolled
// back.
type RoomsExhaustedError struct {
	Date string
}

func (e *RoomsExhaustedError) Error() string {
	return fmt.Sprintf("not enough rooms left on %s", e.Date)
}
