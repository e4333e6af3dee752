package models

import (
	"encoding/json"
	"time"
)

// TriggerEvent discriminates scheduling-provider webhook deliveries.
type TriggerEvent string

const (
	TriggerBookingCreated     TriggerEvent = "BOOKING_CREATED"
	TriggerBookingCancelled   TriggerEvent = "BOOKING_CANCELLED"
	TriggerBookingRescheduled TriggerEvent = "BOOKING_RESCHEDULED"
	TriggerBookingRequested   TriggerEvent = "BOOKING_REQUESTED"
	TriggerBookingRejected    TriggerEvent = "BOOKING_REJECTED"
	TriggerBookingPaid        TriggerEvent = "BOOKING_PAID"
	TriggerMeetingStarted     TriggerEvent = "MEETING_STARTED"
	TriggerMeetingEnded       TriggerEvent = "MEETING_ENDED"
	TriggerPing               TriggerEvent = "PING"
)

// WebhookEvent is a push notification from the scheduling provider.
type WebhookEvent struct {
	TriggerEvent TriggerEvent   `json:"triggerEvent" binding:"required"`
	CreatedAt    time.Time      `json:"createdAt"`
	Payload      WebhookPayload `json:"payload"`
}

// WebhookPayload carries the booking the event refers to.
type WebhookPayload struct {
	UID                string                     `json:"uid"`
	EventTypeID        *int                       `json:"eventTypeId,omitempty"`
	EventTypeSlug      string                     `json:"eventTypeSlug,omitempty"`
	Type               string                     `json:"type,omitempty"` // Provider's own name for the event type slug
	Title              string                     `json:"title,omitempty"`
	StartTime          *time.Time                 `json:"startTime,omitempty"`
	EndTime            *time.Time                 `json:"endTime,omitempty"`
	Attendees          []Attendee                 `json:"attendees,omitempty"`
	Metadata           map[string]json.RawMessage `json:"metadata,omitempty"`
	Status             string                     `json:"status,omitempty"`
	CancellationReason *string                    `json:"cancellationReason,omitempty"`
}

// Slug returns the event type slug, preferring the explicit field.
func (p WebhookPayload) Slug() string {
	if p.EventTypeSlug != "" {
		return p.EventTypeSlug
	}
	return p.Type
}
