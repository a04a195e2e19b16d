package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCorrelationRouter(captured *string) *gin.Engine {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/ledger/ping", func(c *gin.Context) {
		*captured = c.GetString(CorrelationIDKey)
		c.Status(http.StatusOK)
	})
	return r
}

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("MintsIDWhenHeaderAbsent", func(t *testing.T) {
		var contextID string
		router := newCorrelationRouter(&contextID)

		req, _ := http.NewRequest(http.MethodGet, "/ledger/ping", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		headerID := rr.Header().Get(CorrelationIDHeader)
		require.NotEmpty(t, headerID)
		_, err := uuid.Parse(headerID)
		assert.NoError(t, err, "minted correlation ID should be a UUID")

		assert.Equal(t, headerID, contextID, "header and context should carry the same ID")
	})

	t.Run("HonorsCallerSuppliedID", func(t *testing.T) {
		var contextID string
		router := newCorrelationRouter(&contextID)

		callerID := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/ledger/ping", nil)
		req.Header.Set(CorrelationIDHeader, callerID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, callerID, rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, callerID, contextID)
	})
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsStoredID", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		want := uuid.New().String()
		c.Set(CorrelationIDKey, want)

		assert.Equal(t, want, GetCorrelationID(c))
	})

	t.Run("EmptyWhenMiddlewareDidNotRun", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Empty(t, GetCorrelationID(c))
	})

	t.Run("EmptyWhenStoredValueIsNotAString", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 404)

		assert.Empty(t, GetCorrelationID(c))
	})
}
