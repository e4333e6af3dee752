package relationRepo

import (
	"context"

	"classbridge/models"
)

// RelationRepository resolves the payment that funded a scheduling-provider booking.
type RelationRepository interface {
	// GetByBookingUID returns (nil, nil) when the booking has no recorded payment.
	GetByBookingUID(ctx context.Context, bookingUID string) (*models.CalStripeRelation, error)
}
