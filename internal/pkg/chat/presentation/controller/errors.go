package controller

import (
	"errors"
	"net/http"

	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, chat.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case usecase.IsRetryable(err):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		body := gin.H{"error": "service temporarily unavailable", "code": code}
		if usecase.IsRetryable(err) {
			body["retryable"] = true
		}
		c.JSON(status, body)
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
}
