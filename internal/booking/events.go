package booking

import "time"

// EventType names a committed change to the bookings of a tour
type EventType string

const (
	EventCreated   EventType = "booking_created"
	EventUpdated   EventType = "booking_updated"
	EventConfirmed EventType = "booking_confirmed"
	EventCancelled EventType = "booking_cancelled"
	EventCompleted EventType = "booking_completed"
	EventCascade   EventType = "tour_bookings_deleted"
)

// Event is published after a mutation commits. Booking is nil for cascade
// events, which carry the number of deleted rows instead.
type Event struct {
	Type      EventType `json:"type"`
	TourID    int64     `json:"tour_id"`
	Booking   *Booking  `json:"booking,omitempty"`
	Deleted   int64     `json:"deleted,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewEvent stamps an event for b
func NewEvent(t EventType, b *Booking, now time.Time) Event {
	return Event{Type: t, TourID: b.TourID, Booking: b, Timestamp: now.UnixMilli()}
}
