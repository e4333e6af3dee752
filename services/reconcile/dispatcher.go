package reconcile

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"classbridge/models"

	"go.uber.org/zap"
)

const DefaultFreeClassSlug = "free-class"

var paymentIntentIDPattern = regexp.MustCompile(`^pi_[A-Za-z0-9]+$`)

// --- Collaborators ---

// RelationStore resolves the payment that funded a booking. A missing relation
// is reported as (nil, nil).
type RelationStore interface {
	GetByBookingUID(ctx context.Context, bookingUID string) (*models.CalStripeRelation, error)
}

// UserStore resolves users and grants the free-class entitlement.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// SetFirstFreeClass sets only the first_free_class flag and reports
	// whether a user matched.
	SetFirstFreeClass(ctx context.Context, email string) (bool, error)
}

// RefundGateway issues refunds on the payments provider.
//
// Duplicate suppression is the gateway's job: the idempotency key is derived
// from the booking uid, and a refund against an already refunded intent must
// come back as a result with Duplicate set rather than as an error.
type RefundGateway interface {
	CreateRefund(ctx context.Context, paymentIntentID, idempotencyKey string) (*models.RefundResult, error)
}

// Dispatcher is the single entry point for booking side effects, shared by the
// webhook handler and the poller.
type Dispatcher interface {
	HandleCancellation(ctx context.Context, uid string) (*models.RefundResult, error)
	HandleFreeClassCreated(ctx context.Context, uid string, attendees []models.Attendee, eventTypeSlug string) (*FreeClassGrant, error)
}

// FreeClassGrant describes an applied free-class entitlement.
type FreeClassGrant struct {
	BookingUID     string `json:"bookingUid"`
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	AlreadyGranted bool   `json:"alreadyGranted"`
}

// DefaultDispatcher implements Dispatcher on top of the external stores.
type DefaultDispatcher struct {
	relations     RelationStore
	users         UserStore
	gateway       RefundGateway
	freeClassSlug string
	logger        *zap.Logger
}

func NewDispatcher(relations RelationStore, users UserStore, gateway RefundGateway, freeClassSlug string, logger *zap.Logger) *DefaultDispatcher {
	if freeClassSlug == "" {
		freeClassSlug = DefaultFreeClassSlug
	}
	return &DefaultDispatcher{
		relations:     relations,
		users:         users,
		gateway:       gateway,
		freeClassSlug: freeClassSlug,
		logger:        logger,
	}
}

// RefundIdempotencyKey is the key sent to the gateway for a booking's refund.
func RefundIdempotencyKey(uid string) string {
	return "refund-" + uid
}

// RetryRefundIdempotencyKey is the key for the attempt-th retried refund.
func RetryRefundIdempotencyKey(uid string, attempt int) string {
	return RefundIdempotencyKey(uid) + "-r" + strconv.Itoa(attempt)
}

// HandleCancellation refunds the payment that funded the booking. It does not
// deduplicate; every call reaches the gateway.
func (d *DefaultDispatcher) HandleCancellation(ctx context.Context, uid string) (*models.RefundResult, error) {
	return d.refund(ctx, uid, RefundIdempotencyKey(uid))
}

// RetryCancellation is HandleCancellation for the retry worker. Every attempt
// carries its own idempotency key: Stripe replays the stored answer of a
// keyed request, failures included, so reusing the first key could never
// succeed. Repeats after a success still come back as duplicates.
func (d *DefaultDispatcher) RetryCancellation(ctx context.Context, uid string, attempt int) (*models.RefundResult, error) {
	return d.refund(ctx, uid, RetryRefundIdempotencyKey(uid, attempt))
}

func (d *DefaultDispatcher) refund(ctx context.Context, uid, idempotencyKey string) (*models.RefundResult, error) {
	log := d.logger.With(zap.String("booking_uid", uid))

	rel, err := d.relations.GetByBookingUID(ctx, uid)
	if err != nil {
		log.Error("relation lookup failed", zap.Error(err))
		return nil, newError(CodeStore, "relation lookup failed", err)
	}
	if rel == nil {
		log.Error("no payment relation for cancelled booking")
		return nil, newError(CodeRelationNotFound, "no payment relation for booking "+uid, nil)
	}

	intentID := strings.TrimSpace(rel.StripeID)
	if !paymentIntentIDPattern.MatchString(intentID) {
		log.Error("stored payment intent id is malformed", zap.String("stripe_id", rel.StripeID))
		return nil, newError(CodeInvalidPaymentIntID, "malformed payment intent id "+rel.StripeID, nil)
	}

	refund, err := d.gateway.CreateRefund(ctx, intentID, idempotencyKey)
	if err != nil {
		log.Error("refund failed", zap.String("payment_intent", intentID), zap.String("idempotency_key", idempotencyKey), zap.Error(err))
		return nil, newError(CodeGateway, "refund failed", err)
	}

	if refund.Duplicate {
		log.Warn("payment intent already refunded", zap.String("payment_intent", intentID), zap.String("refund_id", refund.ID))
	} else {
		log.Info("refund issued",
			zap.String("payment_intent", intentID),
			zap.String("refund_id", refund.ID),
			zap.Int64("amount", refund.Amount),
			zap.String("status", refund.Status),
		)
	}
	return refund, nil
}

// HandleFreeClassCreated marks the booking owner's free class as used. It
// returns a nil grant for bookings of any other event type.
func (d *DefaultDispatcher) HandleFreeClassCreated(ctx context.Context, uid string, attendees []models.Attendee, eventTypeSlug string) (*FreeClassGrant, error) {
	if eventTypeSlug != d.freeClassSlug {
		return nil, nil
	}
	log := d.logger.With(zap.String("booking_uid", uid))

	owner, ok := models.Booking{UID: uid, Attendees: attendees}.Owner()
	if !ok || strings.TrimSpace(owner.Email) == "" {
		log.Error("free class booking has no attendee email")
		return nil, newError(CodeInvalidState, "booking "+uid+" has no attendee email", nil)
	}
	email := strings.ToLower(strings.TrimSpace(owner.Email))

	user, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		log.Error("user lookup failed", zap.String("email", email), zap.Error(err))
		return nil, newError(CodeStore, "user lookup failed", err)
	}
	if user == nil {
		log.Error("no user for free class attendee", zap.String("email", email))
		return nil, newError(CodeUserNotFound, "no user with email "+email, nil)
	}

	grant := &FreeClassGrant{BookingUID: uid, UserID: user.ID, Email: email, AlreadyGranted: user.FirstFreeClass}
	if user.FirstFreeClass {
		log.Info("free class already granted", zap.String("user_id", user.ID))
		return grant, nil
	}

	matched, err := d.users.SetFirstFreeClass(ctx, email)
	if err != nil {
		log.Error("failed to grant free class", zap.String("user_id", user.ID), zap.Error(err))
		return nil, newError(CodeStore, "failed to grant free class", err)
	}
	if !matched {
		return nil, newError(CodeUserNotFound, "user with email "+email+" disappeared", nil)
	}

	log.Info("free class granted", zap.String("user_id", user.ID))
	return grant, nil
}
