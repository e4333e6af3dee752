package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classbridge/handlers"
	"classbridge/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stub(name string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, name) }
}

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	guarded := false
	hb := &handlers.HandlerBundle{
		Webhook:            stub("webhook"),
		WebhookHealthcheck: stub("healthcheck"),
		RecentChanges:      stub("changes"),
		WebhookMiddleware: []gin.HandlerFunc{func(c *gin.Context) {
			guarded = true
			c.Next()
		}},
		ConfirmBooking: stub("confirm"),
		Health:         stub("health"),
		Auth:           func(c *gin.Context) { c.Next() },
	}
	r := gin.New()
	RegisterRoutes(r, hb)

	cases := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/webhook", "webhook"},
		{http.MethodGet, "/webhook/healthcheck", "healthcheck"},
		{http.MethodGet, "/webhook/changes", "changes"},
		{http.MethodPost, "/api/bookings/bk_1/confirm", "confirm"},
		{http.MethodGet, "/health", "health"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
	assert.True(t, guarded)
}

func TestWebhookMiddlewareOnlyGuardsPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hb := &handlers.HandlerBundle{
		Webhook:            stub("webhook"),
		WebhookHealthcheck: stub("healthcheck"),
		RecentChanges:      stub("changes"),
		WebhookMiddleware: []gin.HandlerFunc{func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		}},
		ConfirmBooking: stub("confirm"),
		Auth:           func(c *gin.Context) { c.Next() },
	}
	r := gin.New()
	RegisterRoutes(r, hb)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook/healthcheck", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOperatorRoutesRequireBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	confirms := 0
	hb := &handlers.HandlerBundle{
		Webhook:            stub("webhook"),
		WebhookHealthcheck: stub("healthcheck"),
		RecentChanges:      stub("changes"),
		ConfirmBooking: func(c *gin.Context) {
			confirms++
			c.String(http.StatusOK, "confirm")
		},
		Auth: middleware.JWTAuthMiddleware("s3cret", zap.NewNop()),
	}
	r := gin.New()
	RegisterRoutes(r, hb)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/bookings/someone-elses-booking/confirm", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, confirms)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook/changes", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops-1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/bk_1/confirm", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, confirms)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook/healthcheck", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
