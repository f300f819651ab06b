// Package service implements the booking lifecycle and accommodation
// inventory on top of the repository ledger.  Every mutating operation runs
// inside one transaction that reads a locked, fresh snapshot of the
// affected dates before changing anything.
package service

import (
	"errors"
	"fmt"
)

// ErrInsufficientAvailability is matched with errors.Is by callers that do
// not need the offending date.
var ErrInsufficientAvailability = errors.New("insufficient availability")

// ValidationError reports a bad input field.  No remote call has been made
// when it is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// AvailabilityError names the first date that cannot supply the requested
// rooms and how many are left on it.
type AvailabilityError struct {
	Date      string
	Requested int
	Left      int
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("not enough rooms on %s: requested %d, %d left", e.Date, e.Requested, e.Left)
}

func (e *AvailabilityError) Unwrap() error { return ErrInsufficientAvailability }
