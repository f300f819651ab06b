// Package queue defines the booking events exchanged over RabbitMQ and the
// publisher and consumer that move them.
package queue

// Event types double as queue names.
const (
	BookingConfirmed = "booking.confirmed"
	BookingUpdated   = "booking.updated"
	BookingCanceled  = "booking.canceled"
)

// Queues lists every queue the consumer listens on.
var Queues = []string{BookingConfirmed, BookingUpdated, BookingCanceled}

// BookingEvent is published after a booking transaction commits.  It
// carries enough of the booking for downstream consumers to log or notify
// without querying the primary database.
type BookingEvent struct {
	Type              string `json:"type"`
	BookingID         uint64 `json:"booking_id"`
	UserID            uint64 `json:"user_id"`
	AccommodationID   uint64 `json:"accommodation_id"`
	AccommodationName string `json:"accommodation_name,omitempty"`
	StartDate         string `json:"start_date"`
	Days              int    `json:"days"`
	Rooms             int    `json:"rooms"`
	Status            string `json:"status"`
	ActorID           uint64 `json:"actor_id"`
	OccurredAt        string `json:"occurred_at"`
}
