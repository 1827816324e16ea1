// respond.go maps core errors onto HTTP responses.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/middleware"
)

// retryAfterSeconds is advertised on 503 responses for retryable failures.
const retryAfterSeconds = "1"

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error       string            `json:"error"`
	Code        apperr.Kind       `json:"code"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Details     map[string]any    `json:"details,omitempty"`
}

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidIdentifier, apperr.KindNamespaceNotFound:
		// Not user-correctable: a rejected identifier or an organization
		// without a namespace is a server-side fault.
		return http.StatusInternalServerError
	case apperr.KindCapacityExceeded, apperr.KindInvalidTransition:
		return http.StatusConflict
	}
	if apperr.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err using the error taxonomy. Unexpected failures are
// logged with the request ID and rendered with a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Code: apperr.KindOf(err)}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Unexpected(err, "")
	}

	switch status {
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"request_id", c.GetString(middleware.RequestIDKey),
			"path", c.FullPath(),
			"retryable", appErr.Retryable,
			"error", err)
		body.Error = "internal server error"
		if status == http.StatusServiceUnavailable {
			body.Error = "service temporarily unavailable, please retry"
			c.Header("Retry-After", retryAfterSeconds)
		}
	default:
		body.Error = userMessage(appErr)
		if appErr.Field != "" {
			body.FieldErrors = map[string]string{appErr.Field: body.Error}
		}
		body.Details = appErr.Details
	}

	c.AbortWithStatusJSON(status, body)
}

// userMessage renders a sentence-cased message for a user-correctable error.
func userMessage(e *apperr.Error) string {
	msg := e.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
