package handlers

import (
	"net/http"
	"strconv"

	"classbridge/models"
	"classbridge/services/reconcile"
	"classbridge/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultChangesLimit = 100

// WebhookHandler receives scheduling-provider push notifications.
// It is stateless and safe to invoke concurrently and repeatedly for one booking.
type WebhookHandler struct {
	dispatcher    reconcile.Dispatcher
	retries       reconcile.RetryQueue
	changes       *reconcile.ChangeLog
	freeClassSlug string
	logger        *zap.Logger
}

func NewWebhookHandler(
	dispatcher reconcile.Dispatcher,
	retries reconcile.RetryQueue,
	changes *reconcile.ChangeLog,
	freeClassSlug string,
	logger *zap.Logger,
) *WebhookHandler {
	if freeClassSlug == "" {
		freeClassSlug = reconcile.DefaultFreeClassSlug
	}
	return &WebhookHandler{
		dispatcher:    dispatcher,
		retries:       retries,
		changes:       changes,
		freeClassSlug: freeClassSlug,
		logger:        logger,
	}
}

// HandleWebhook handles POST /webhook.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	var event models.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		getLogger(c, h.logger).Warn("invalid webhook payload", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "Invalid webhook payload: "+err.Error())
		return
	}

	log := getLogger(c, h.logger).With(zap.String("trigger", string(event.TriggerEvent)), zap.String("booking_uid", event.Payload.UID))

	switch {
	case event.TriggerEvent == models.TriggerBookingCancelled:
		h.handleCancelled(c, event.Payload, log)
	case event.TriggerEvent == models.TriggerBookingCreated && event.Payload.Slug() == h.freeClassSlug:
		h.handleFreeClassCreated(c, event.Payload, log)
	default:
		log.Info("webhook received but not processed", zap.String("event_type", event.Payload.Slug()))
		utils.JSONError(c, http.StatusNotAcceptable, "Webhook received but not processed: "+string(event.TriggerEvent))
	}
}

func (h *WebhookHandler) handleCancelled(c *gin.Context, p models.WebhookPayload, log *zap.Logger) {
	if p.UID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing booking uid")
		return
	}
	ctx := c.Request.Context()

	refund, err := h.dispatcher.HandleCancellation(ctx, p.UID)
	if err != nil {
		log.Error("cancellation refund failed", zap.String("code", reconcile.ErrorCode(err)), zap.Error(err))
		if scheduled, qErr := reconcile.ScheduleRefundRetry(ctx, h.retries, p.UID, err); qErr != nil {
			log.Error("could not schedule refund retry", zap.Error(qErr))
		} else if scheduled {
			log.Info("refund retry scheduled")
		}
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}

	message := "Refund processed"
	if refund.Duplicate {
		message = "Booking was already refunded"
	}
	utils.JSONSuccess(c, http.StatusOK, message, refund)
}

func (h *WebhookHandler) handleFreeClassCreated(c *gin.Context, p models.WebhookPayload, log *zap.Logger) {
	grant, err := h.dispatcher.HandleFreeClassCreated(c.Request.Context(), p.UID, p.Attendees, p.Slug())
	if err != nil {
		log.Error("free class grant failed", zap.String("code", reconcile.ErrorCode(err)), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, "Free class recorded", grant)
}

// Healthcheck handles GET /webhook/healthcheck.
func (h *WebhookHandler) Healthcheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// RecentChanges handles GET /webhook/changes.
func (h *WebhookHandler) RecentChanges(c *gin.Context) {
	limit := defaultChangesLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.JSONError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	changes := h.changes.Recent(limit)
	utils.JSONSuccess(c, http.StatusOK, strconv.Itoa(len(changes))+" recent booking changes", changes)
}
