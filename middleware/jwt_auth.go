package middleware

import (
	"errors"
	"net/http"
	"strings"

	"classbridge/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

// SubjectKey holds the authenticated token subject in the gin context.
const SubjectKey = "subject"

// JWTAuthMiddleware admits requests carrying an HS256 bearer token signed
// with secret and naming a subject. An empty secret rejects everything.
func JWTAuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logger.Error("JWT secret not configured, rejecting request", zap.String("path", c.FullPath()))
			abortUnauthorized(c, "Authentication is not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		subject, err := validateToken(strings.TrimPrefix(authHeader, "Bearer "), []byte(secret))
		if err != nil {
			logger.Warn("rejected bearer token", zap.String("ip", getClientIP(c)), zap.Error(err))
			abortUnauthorized(c, "Invalid token")
			return
		}

		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// validateToken checks signature and expiry and returns the sub claim.
func validateToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}
	return sub, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{Success: false, Message: message})
}
