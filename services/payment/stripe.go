package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"classbridge/models"
	"classbridge/services/reconcile"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StatusAlreadyRefunded is reported when Stripe refuses a refund because the
// intent has been refunded and the earlier refund cannot be found.
const StatusAlreadyRefunded = "already_refunded"

// StripeConfig configures the Stripe refund gateway.
type StripeConfig struct {
	SecretKey  string
	HTTPClient *http.Client
	// APIURL overrides the Stripe API endpoint; empty means api.stripe.com.
	APIURL string
}

// StripeGateway issues refunds through the Stripe API.
//
// It relies on Stripe for duplicate suppression: requests carry an
// idempotency key, and a charge_already_refunded rejection is turned into a
// duplicate result describing the refund that already exists.
type StripeGateway struct {
	sc     *client.API
	logger *zap.Logger
}

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:    cfg.HTTPClient,
		LeveledLogger: logger.Sugar(),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &StripeGateway{sc: sc, logger: logger}
}

// CreateRefund refunds the full amount of the payment intent.
func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID, idempotencyKey string) (*models.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	r, err := g.sc.Refunds.New(params)
	if err != nil {
		if isAlreadyRefunded(err) {
			return g.existingRefund(ctx, paymentIntentID)
		}
		if isPermanent(err) {
			return nil, fmt.Errorf("stripe refund for %s: %w: %w", paymentIntentID, reconcile.ErrRefundRejected, err)
		}
		return nil, fmt.Errorf("stripe refund for %s: %w", paymentIntentID, err)
	}
	return toRefundResult(r, false), nil
}

// existingRefund looks up the newest refund of an already refunded intent.
func (g *StripeGateway) existingRefund(ctx context.Context, paymentIntentID string) (*models.RefundResult, error) {
	params := &stripe.RefundListParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.sc.Refunds.List(params)
	if it.Next() {
		return toRefundResult(it.Refund(), true), nil
	}
	if err := it.Err(); err != nil {
		g.logger.Warn("could not list refunds of already refunded intent",
			zap.String("payment_intent", paymentIntentID), zap.Error(err))
	}
	return &models.RefundResult{Status: StatusAlreadyRefunded, Duplicate: true}, nil
}

func isAlreadyRefunded(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded
}

// isPermanent reports 4xx answers other than rate limiting. Network errors and
// 5xx may succeed on a later attempt.
func isPermanent(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	code := stripeErr.HTTPStatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func toRefundResult(r *stripe.Refund, duplicate bool) *models.RefundResult {
	return &models.RefundResult{
		ID:        r.ID,
		Amount:    r.Amount,
		Currency:  string(r.Currency),
		Status:    string(r.Status),
		Created:   time.Unix(r.Created, 0).UTC(),
		Duplicate: duplicate,
	}
}
