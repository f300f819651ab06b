package model

import "time"

// Booking statuses.  Confirmed and pending bookings hold rooms; canceled
// bookings have given their rooms back.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusCanceled  = "canceled"
)

// Booking is a user's reservation of rooms in one accommodation for a run
// of consecutive nights starting at StartDate.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owner of the booking.
//  AccommodationID – booked accommodation.
//  StartDate       – first night ("YYYY-MM-DD").
//  Days            – number of nights, >= 1.
//  Adults, Kids    – party size.
//  Rooms           – rooms held on every night of the stay.
//  Status          – confirmed, pending or canceled.
type Booking struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	AccommodationID uint64    `json:"accommodation_id"`
	StartDate       string    `json:"start_date"`
	Days            int       `json:"days"`
	Adults          int       `json:"adults"`
	Kids            int       `json:"kids"`
	Rooms           int       `json:"rooms"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HoldsRooms reports whether the booking's rooms are deducted from
// availability.
func (b *Booking) HoldsRooms() bool { return HoldsRooms(b.Status) }

// HoldsRooms reports whether a booking in the given status keeps its rooms.
func HoldsRooms(status string) bool {
	return status == StatusConfirmed || status == StatusPending
}

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusCanceled:
		return true
	}
	return false
}

// BookingView is a booking joined with the names shown in listings.
type BookingView struct {
	Booking
	AccommodationName string `json:"accommodation_name"`
	Category          string `json:"category"`
	UserFirstName     string `json:"user_first_name,omitempty"`
	UserEmail         string `json:"user_email,omitempty"`
}
