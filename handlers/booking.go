package handlers

import (
	"context"
	"net/http"

	"classbridge/models"
	"classbridge/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingConfirmer accepts bookings on the scheduling provider.
type BookingConfirmer interface {
	ConfirmBooking(ctx context.Context, uid string) (*models.Booking, error)
}

// BookingHandler exposes scheduling-provider booking operations.
type BookingHandler struct {
	confirmer BookingConfirmer
	logger    *zap.Logger
}

func NewBookingHandler(confirmer BookingConfirmer, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{confirmer: confirmer, logger: logger}
}

// ConfirmBooking handles POST /api/bookings/:uid/confirm.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	uid := c.Param("uid")
	booking, err := h.confirmer.ConfirmBooking(c.Request.Context(), uid)
	if err != nil {
		getLogger(c, h.logger).Error("Failed to confirm booking", zap.String("booking_uid", uid), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Failed to confirm booking")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, "Booking confirmed", booking)
}
