package handlers

import (
	"context"
	"sync"

	"classbridge/models"
	"classbridge/services/reconcile"

	"github.com/stretchr/testify/mock"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) HandleCancellation(ctx context.Context, uid string) (*models.RefundResult, error) {
	args := m.Called(ctx, uid)
	res, _ := args.Get(0).(*models.RefundResult)
	return res, args.Error(1)
}

func (m *mockDispatcher) HandleFreeClassCreated(ctx context.Context, uid string, attendees []models.Attendee, slug string) (*reconcile.FreeClassGrant, error) {
	args := m.Called(ctx, uid, attendees, slug)
	g, _ := args.Get(0).(*reconcile.FreeClassGrant)
	return g, args.Error(1)
}

type mockRetryQueue struct {
	mock.Mock
}

func (m *mockRetryQueue) EnqueueRefundRetry(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) ConfirmBooking(ctx context.Context, uid string) (*models.Booking, error) {
	args := m.Called(ctx, uid)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

// memoryUsers is a user store keyed by email.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (s *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memoryUsers) SetFirstFreeClass(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return false, nil
	}
	u.FirstFreeClass = true
	s.users[email] = u
	return true, nil
}

type noRelations struct{}

func (noRelations) GetByBookingUID(context.Context, string) (*models.CalStripeRelation, error) {
	return nil, nil
}

type noGateway struct{}

func (noGateway) CreateRefund(context.Context, string, string) (*models.RefundResult, error) {
	panic("refund gateway must not be called")
}

type fundedRelations struct{}

func (fundedRelations) GetByBookingUID(_ context.Context, uid string) (*models.CalStripeRelation, error) {
	return &models.CalStripeRelation{BookingUID: uid, StripeID: "pi_concurrent"}, nil
}

// idempotentGateway refunds each key once and answers repeats as duplicates.
type idempotentGateway struct {
	mu       sync.Mutex
	calls    int
	refunded map[string]bool
}

func (g *idempotentGateway) CreateRefund(_ context.Context, paymentIntentID, idempotencyKey string) (*models.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.refunded == nil {
		g.refunded = make(map[string]bool)
	}
	res := &models.RefundResult{ID: "re_" + paymentIntentID, Amount: 2500, Status: "succeeded", Duplicate: g.refunded[idempotencyKey]}
	g.refunded[idempotencyKey] = true
	return res, nil
}
