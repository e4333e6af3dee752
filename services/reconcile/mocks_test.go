package reconcile

import (
	"context"
	"errors"
	"sync"

	"classbridge/models"

	"github.com/stretchr/testify/mock"
)

var errMockNetwork = errors.New("mock network error")

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	bookings, _ := args.Get(0).([]models.Booking)
	return bookings, args.Error(1)
}

type mockRelations struct {
	mock.Mock
}

func (m *mockRelations) GetByBookingUID(ctx context.Context, uid string) (*models.CalStripeRelation, error) {
	args := m.Called(ctx, uid)
	rel, _ := args.Get(0).(*models.CalStripeRelation)
	return rel, args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateRefund(ctx context.Context, paymentIntentID, idempotencyKey string) (*models.RefundResult, error) {
	args := m.Called(ctx, paymentIntentID, idempotencyKey)
	res, _ := args.Get(0).(*models.RefundResult)
	return res, args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) HandleCancellation(ctx context.Context, uid string) (*models.RefundResult, error) {
	args := m.Called(ctx, uid)
	res, _ := args.Get(0).(*models.RefundResult)
	return res, args.Error(1)
}

func (m *mockDispatcher) HandleFreeClassCreated(ctx context.Context, uid string, attendees []models.Attendee, slug string) (*FreeClassGrant, error) {
	args := m.Called(ctx, uid, attendees, slug)
	g, _ := args.Get(0).(*FreeClassGrant)
	return g, args.Error(1)
}

type mockRetryQueue struct {
	mock.Mock
}

func (m *mockRetryQueue) EnqueueRefundRetry(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

// memoryUserStore keeps users keyed by email and applies the same targeted
// update as the Mongo store.
type memoryUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	failGet error
	failSet error
}

func newMemoryUserStore(users ...models.User) *memoryUserStore {
	s := &memoryUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memoryUserStore) SetFirstFreeClass(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return false, s.failSet
	}
	u, ok := s.users[email]
	if !ok {
		return false, nil
	}
	u.FirstFreeClass = true
	s.users[email] = u
	return true, nil
}

func (s *memoryUserStore) get(email string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}
