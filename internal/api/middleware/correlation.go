package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationIDHeader carries the request correlation ID. Callers such as
// the school portal or the bursar back office may supply their own; when
// absent one is minted here so every ledger mutation can be traced end to
// end, including through outbox events.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDKey is the gin context key the correlation ID is stored under.
const CorrelationIDKey = "correlation_id"

// CorrelationID attaches a correlation ID to every request. An incoming
// header value is honored as-is, otherwise a fresh UUID is generated. The
// ID is echoed back on the response header and stashed in the gin context
// for handlers and downstream middleware.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)
		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" when the
// middleware has not run (or stored something that is not a string).
func GetCorrelationID(c *gin.Context) string {
	v, ok := c.Get(CorrelationIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
