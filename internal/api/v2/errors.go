package api

import (
	"crypto/rand"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Client-facing messages.
const (
	MsgBadRequest    = "请求参数错误。"
	MsgNotFound      = "目标不存在。"
	MsgInternalError = "服务器内部错误。"
	MsgCancelled     = "请求已取消。"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"` // only set for server errors
}

// generateCorrelationID creates a short identifier that ties a 500 response
// to its log line.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError maps err to a response. Validation failures answer 403 with
// their message, as the web client expects. Missing targets answer 404.
// Anything else is logged in full and answered with a generic 500.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	switch {
	case errors.IsValidation(err):
		return ctx.JSON(http.StatusForbidden, ErrorResponse{Status: StatusFailed, Message: err.Error()})
	case errors.IsNotFound(err):
		return ctx.JSON(http.StatusNotFound, ErrorResponse{Status: StatusFailed, Message: MsgNotFound})
	case errors.IsCategory(err, errors.CategoryCancellation):
		// The client went away; nobody reads this response
		c.log.Debug("request cancelled", logger.String("path", ctx.Path()))
		return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Status: StatusFailed, Message: MsgCancelled})
	}

	id := generateCorrelationID()
	c.log.WithContext(ctx.Request().Context()).Error("API error",
		logger.String("correlation_id", id),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err))
	return ctx.JSON(http.StatusInternalServerError, ErrorResponse{
		Status:        StatusFailed,
		Message:       MsgInternalError,
		CorrelationID: id,
	})
}

// badRequest answers a request whose fields are missing or mistyped.
func badRequest(ctx echo.Context, message string) error {
	if message == "" {
		message = MsgBadRequest
	}
	return ctx.JSON(http.StatusForbidden, ErrorResponse{Status: StatusFailed, Message: message})
}
