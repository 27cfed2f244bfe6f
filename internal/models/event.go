package models

import "time"

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingCompleted EventType = "booking.completed"
	EventListingSubmitted EventType = "listing.submitted"
	EventListingModerated EventType = "listing.moderated"
	EventReviewSubmitted  EventType = "review.submitted"
	EventReviewModerated  EventType = "review.moderated"
)

// Event is published after a state change has been committed.
type Event struct {
	Type        EventType `json:"type"`
	ApartmentID uint      `json:"apartment_id,omitempty"`
	BookingID   uint      `json:"booking_id,omitempty"`
	ReviewID    uint      `json:"review_id,omitempty"`
	ActorID     uint      `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
