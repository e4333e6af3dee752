package handlers

import (
	"net/http/httptest"
	"testing"

	"classbridge/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fallback := zap.NewNop()
	scoped := zap.NewExample()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, fallback, getLogger(c, fallback))

	c.Set(middleware.LoggerKey, scoped)
	assert.Same(t, scoped, getLogger(c, fallback))
}
