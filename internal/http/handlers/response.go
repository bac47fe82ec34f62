// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response helpers. Every failure leaves through fail()
// with an ErrorResponse; service errors are classified by writeError so each
// error class maps to exactly one status and code.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "project not found"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-guide-backend/internal/http/middleware"
	"github.com/tbourn/go-guide-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"project not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// classify maps a service error to (status, code, message). Messages for
// 5xx are generic: provider and storage details stay in the logs.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, ErrCodeBadRequest, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, ErrCodeConflict, err.Error()
	case errors.Is(err, services.ErrDuplicateHint):
		return http.StatusBadGateway, ErrCodeDuplicateHint, "the guide could not produce a new hint, please retry"
	case errors.Is(err, services.ErrGeneration):
		return http.StatusBadGateway, ErrCodeGenerationFailed, "the guide could not produce a reply, please retry"
	case errors.Is(err, services.ErrPersistence):
		return http.StatusInternalServerError, ErrCodePersistenceFailed, "the conversation could not be saved"
	default:
		return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
	}
}

// writeError responds with the class of err. For 5xx the raw error is
// attached to the Gin context so the access log carries it.
func writeError(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, code, msg)
}

// okJSON writes a success JSON response.
func okJSON(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
