package models

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the scheduling provider's booking state.
type BookingStatus string

const (
	BookingAccepted  BookingStatus = "ACCEPTED"
	BookingPending   BookingStatus = "PENDING"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingRejected  BookingStatus = "REJECTED"
)

// ParseBookingStatus accepts the provider's lower-case REST values and upper-case webhook values.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case BookingAccepted:
		return BookingAccepted, nil
	case BookingPending:
		return BookingPending, nil
	case BookingCancelled:
		return BookingCancelled, nil
	case BookingRejected:
		return BookingRejected, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// Attendee is a participant of a booking.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// Booking represents one reservation known to the scheduling provider.
type Booking struct {
	UID           string        `json:"uid"`           // Stable provider identifier
	Status        BookingStatus `json:"status"`        // Reconciled state
	Title         string        `json:"title"`         // Descriptive only
	StartTime     time.Time     `json:"startTime"`     // Descriptive only
	EndTime       time.Time     `json:"endTime"`       // Descriptive only
	Attendees     []Attendee    `json:"attendees"`     // First attendee owns the booking
	EventTypeID   int           `json:"eventTypeId"`   // Provider event type
	EventTypeSlug string        `json:"eventTypeSlug"` // e.g. "free-class"
}

// Owner returns the first attendee, who is treated as the booking owner.
func (b Booking) Owner() (Attendee, bool) {
	if len(b.Attendees) == 0 {
		return Attendee{}, false
	}
	return b.Attendees[0], true
}
