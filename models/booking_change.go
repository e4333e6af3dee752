package models

import (
	"fmt"
	"time"
)

// BookingChange is one detected status transition of a booking.
type BookingChange struct {
	UID        string        `json:"uid"`
	OldStatus  BookingStatus `json:"oldStatus"`
	NewStatus  BookingStatus `json:"newStatus"`
	DetectedAt time.Time     `json:"detectedAt"`
}

// NewBookingChange refuses no-op transitions.
func NewBookingChange(uid string, oldStatus, newStatus BookingStatus, detectedAt time.Time) (BookingChange, error) {
	if oldStatus == newStatus {
		return BookingChange{}, fmt.Errorf("booking %s: status unchanged (%s)", uid, oldStatus)
	}
	return BookingChange{
		UID:        uid,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		DetectedAt: detectedAt,
	}, nil
}

// IsCancellation reports whether the transition ends in a cancelled booking.
func (c BookingChange) IsCancellation() bool {
	return c.NewStatus == BookingCancelled
}
