package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"classbridge/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SignatureHeader  = "X-Cal-Signature-256"
	maxWebhookBodyKB = 512
)

// WebhookSignature verifies the scheduling provider's HMAC-SHA256 body
// signature. An empty secret disables verification.
func WebhookSignature(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyKB<<10))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logger.Warn("webhook body too large", zap.Int64("limit", tooLarge.Limit), zap.String("ip", getClientIP(c)))
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.APIResponse{Success: false, Message: "body too large"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, models.APIResponse{Success: false, Message: "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidSignature(secret, body, c.GetHeader(SignatureHeader)) {
			logger.Warn("webhook signature mismatch", zap.String("ip", getClientIP(c)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{Success: false, Message: "invalid signature"})
			return
		}
		c.Next()
	}
}

// ValidSignature reports whether signature is the hex HMAC-SHA256 of body.
func ValidSignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
