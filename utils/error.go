package utils

import (
	"net/http"

	"classbridge/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler is a middleware to catch panics and return the error envelope.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
					Success: false,
					Message: "An unexpected error occurred. Please try again later.",
				})
			}
		}()
		c.Next()
	}
}

// JSONSuccess sends the success envelope.
func JSONSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{Success: true, Message: message, Data: data})
}

// JSONError sends the error envelope.
func JSONError(c *gin.Context, status int, message string) {
	c.JSON(status, models.APIResponse{Success: false, Message: message})
}
