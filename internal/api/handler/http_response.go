package handler

import (
	"net/http"

	"github.com/campus-finance-ledger/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every finance endpoint returns. Exactly one of
// Data and Error is set; the correlation ID is always echoed so a rejected
// payment can be traced back through the request logs.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo carries a stable machine-readable code plus a human message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewResponse(data interface{}) *Response {
	return &Response{Data: data}
}

func NewErrorResponse(code, message string) *Response {
	return &Response{Error: &ErrorInfo{Code: code, Message: message}}
}

// RespondWithData writes a success envelope with the given status.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	resp := NewResponse(data)
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, resp)
}

// RespondWithError writes an error envelope with the given status.
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	resp := NewErrorResponse(code, message)
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, resp)
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondInternalError deliberately returns a generic message; the real
// cause is logged server-side with the correlation ID.
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
