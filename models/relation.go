package models

import "time"

// CalStripeRelation links a scheduling-provider booking to the payment that funded it.
type CalStripeRelation struct {
	BookingUID string    `bson:"booking_uid" json:"bookingUid"` // Booking uid on the scheduling provider
	StripeID   string    `bson:"stripe_id" json:"stripeId"`     // Payment intent id, e.g. "pi_..."
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}
