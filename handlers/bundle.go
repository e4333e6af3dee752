package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Scheduling-provider webhooks
	Webhook            gin.HandlerFunc
	WebhookHealthcheck gin.HandlerFunc
	RecentChanges      gin.HandlerFunc
	WebhookMiddleware  []gin.HandlerFunc

	// Booking endpoints
	ConfirmBooking gin.HandlerFunc

	// Operations
	Health gin.HandlerFunc

	// Bearer-token guard for operator endpoints
	Auth gin.HandlerFunc
}
