package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"classbridge/models"
	"classbridge/services/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newWebhookEngine(h *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.HandleWebhook)
	r.GET("/webhook/healthcheck", h.Healthcheck)
	r.GET("/webhook/changes", h.RecentChanges)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestWebhookCancelledRefunds(t *testing.T) {
	d := new(mockDispatcher)
	d.On("HandleCancellation", mock.Anything, "bk_1").
		Return(&models.RefundResult{ID: "re_1", Amount: 2500, Currency: "usd", Status: "succeeded"}, nil)

	h := NewWebhookHandler(d, nil, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, env := postWebhook(t, newWebhookEngine(h), `{"triggerEvent":"BOOKING_CANCELLED","payload":{"uid":"bk_1"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	var refund models.RefundResult
	require.NoError(t, json.Unmarshal(env.Data, &refund))
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, int64(2500), refund.Amount)
	d.AssertExpectations(t)
}

func TestWebhookCancelledConcurrentDeliveries(t *testing.T) {
	gw := &idempotentGateway{}
	dispatcher := reconcile.NewDispatcher(fundedRelations{}, &memoryUsers{users: map[string]models.User{}}, gw, "", zap.NewNop())
	r := newWebhookEngine(NewWebhookHandler(dispatcher, nil, reconcile.NewChangeLog(0, 0), "", zap.NewNop()))

	const deliveries = 16
	codes := make([]int, deliveries)
	duplicates := make([]bool, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/webhook",
				strings.NewReader(`{"triggerEvent":"BOOKING_CANCELLED","payload":{"uid":"bk_same"}}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes[i] = w.Code

			var env envelope
			if json.Unmarshal(w.Body.Bytes(), &env) == nil {
				var refund models.RefundResult
				if json.Unmarshal(env.Data, &refund) == nil {
					duplicates[i] = refund.Duplicate
				}
			}
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range codes {
		assert.Equal(t, http.StatusOK, codes[i])
		if !duplicates[i] {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, deliveries, gw.calls)
}

func TestWebhookCancelledGatewayFailureSchedulesRetry(t *testing.T) {
	d := new(mockDispatcher)
	d.On("HandleCancellation", mock.Anything, "bk_2").Return(nil, reconcile.ErrGateway)
	q := new(mockRetryQueue)
	q.On("EnqueueRefundRetry", mock.Anything, "bk_2").Return(nil).Once()

	h := NewWebhookHandler(d, q, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, env := postWebhook(t, newWebhookEngine(h), `{"triggerEvent":"BOOKING_CANCELLED","payload":{"uid":"bk_2"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, reconcile.CodeGateway)
	q.AssertExpectations(t)
}

func TestWebhookCancelledMissingRelationIsNotRetried(t *testing.T) {
	d := new(mockDispatcher)
	d.On("HandleCancellation", mock.Anything, "bk_3").Return(nil, reconcile.ErrRelationNotFound)
	q := new(mockRetryQueue)

	h := NewWebhookHandler(d, q, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, env := postWebhook(t, newWebhookEngine(h), `{"triggerEvent":"BOOKING_CANCELLED","payload":{"uid":"bk_3"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, env.Message, reconcile.CodeRelationNotFound)
	q.AssertNotCalled(t, "EnqueueRefundRetry", mock.Anything, mock.Anything)
}

func TestWebhookCancelledRetryEnqueueFailureStill500(t *testing.T) {
	d := new(mockDispatcher)
	d.On("HandleCancellation", mock.Anything, "bk_4").Return(nil, reconcile.ErrStore)
	q := new(mockRetryQueue)
	q.On("EnqueueRefundRetry", mock.Anything, "bk_4").Return(errors.New("redis down"))

	h := NewWebhookHandler(d, q, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, _ := postWebhook(t, newWebhookEngine(h), `{"triggerEvent":"BOOKING_CANCELLED","payload":{"uid":"bk_4"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookCancelledWithoutUID(t *testing.T) {
	d := new(mockDispatcher)
	h := NewWebhookHandler(d, nil, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, _ := postWebhook(t, newWebhookEngine(h), `{"triggerEvent":"BOOKING_CANCELLED","payload":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	d.AssertNotCalled(t, "HandleCancellation", mock.Anything, mock.Anything)
}

func TestWebhookMalformedBody(t *testing.T) {
	h := NewWebhookHandler(new(mockDispatcher), nil, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, env := postWebhook(t, newWebhookEngine(h), `{"payload":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestWebhookUnhandledTriggerIsNotAcceptable(t *testing.T) {
	d := new(mockDispatcher)
	h := NewWebhookHandler(d, nil, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	w, env := postWebhook(t, newWebhookEngine(h), `{"triggerEvent":"MEETING_STARTED","payload":{"uid":"bk_5"}}`)

	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "MEETING_STARTED")
	d.AssertNotCalled(t, "HandleCancellation", mock.Anything, mock.Anything)
}

func TestWebhookCreatedForOtherEventTypeIsNotAcceptable(t *testing.T) {
	d := new(mockDispatcher)
	h := NewWebhookHandler(d, nil, reconcile.NewChangeLog(0, 0), "free-class", zap.NewNop())
	w, _ := postWebhook(t, newWebhookEngine(h),
		`{"triggerEvent":"BOOKING_CREATED","payload":{"uid":"bk_6","eventTypeSlug":"piano-60"}}`)

	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	d.AssertNotCalled(t, "HandleFreeClassCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookFreeClassGrantsEntitlement(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	users := &memoryUsers{users: map[string]models.User{
		"alice@example.com": {ID: "u_alice", Email: "alice@example.com", Name: "Alice", CreatedAt: created, UpdatedAt: created},
	}}
	dispatcher := reconcile.NewDispatcher(noRelations{}, users, noGateway{}, "free-class", zap.NewNop())
	h := NewWebhookHandler(dispatcher, nil, reconcile.NewChangeLog(0, 0), "free-class", zap.NewNop())

	body := `{"triggerEvent":"BOOKING_CREATED","payload":{"uid":"bk_7","eventTypeSlug":"free-class",` +
		`"attendees":[{"name":"Alice","email":"alice@example.com","timeZone":"UTC"}]}}`
	w, env := postWebhook(t, newWebhookEngine(h), body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var grant reconcile.FreeClassGrant
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	assert.Equal(t, "u_alice", grant.UserID)
	assert.False(t, grant.AlreadyGranted)

	got := users.users["alice@example.com"]
	assert.True(t, got.FirstFreeClass)
	assert.Equal(t, models.User{ID: "u_alice", Email: "alice@example.com", Name: "Alice", FirstFreeClass: true, CreatedAt: created, UpdatedAt: created}, got)
}

func TestWebhookFreeClassUnknownUser(t *testing.T) {
	dispatcher := reconcile.NewDispatcher(noRelations{}, &memoryUsers{users: map[string]models.User{}}, noGateway{}, "free-class", zap.NewNop())
	h := NewWebhookHandler(dispatcher, nil, reconcile.NewChangeLog(0, 0), "free-class", zap.NewNop())

	body := `{"triggerEvent":"BOOKING_CREATED","payload":{"uid":"bk_8","type":"free-class",` +
		`"attendees":[{"name":"Bob","email":"bob@example.com"}]}}`
	w, env := postWebhook(t, newWebhookEngine(h), body)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, env.Message, reconcile.CodeUserNotFound)
}

func TestWebhookHealthcheck(t *testing.T) {
	h := NewWebhookHandler(new(mockDispatcher), nil, reconcile.NewChangeLog(0, 0), "", zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/webhook/healthcheck", nil)
	w := httptest.NewRecorder()
	newWebhookEngine(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRecentChanges(t *testing.T) {
	changes := reconcile.NewChangeLog(0, 0)
	now := time.Now().UTC()
	changes.Append(
		models.BookingChange{UID: "a", OldStatus: models.BookingPending, NewStatus: models.BookingAccepted, DetectedAt: now},
		models.BookingChange{UID: "b", OldStatus: models.BookingAccepted, NewStatus: models.BookingCancelled, DetectedAt: now},
	)
	r := newWebhookEngine(NewWebhookHandler(new(mockDispatcher), nil, changes, "", zap.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/webhook/changes?limit=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var got []models.BookingChange
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].UID)

	req = httptest.NewRequest(http.MethodGet, "/webhook/changes?limit=abc", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
