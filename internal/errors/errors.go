// Package errors provides the standardized API error envelope returned by
// every JSON route.
package errors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIError represents a standardized error across routes.
type APIError struct {
	HTTPStatus int                    `json:"-"`
	Code       string                 `json:"code,omitempty"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// New constructs an APIError.
func New(status int, typ, code, message string) *APIError {
	return &APIError{HTTPStatus: status, Type: typ, Code: code, Message: message}
}

func (e *APIError) Error() string { return e.Message }

// Abort serializes the error envelope and aborts the request.
func Abort(c *gin.Context, err *APIError) {
	if err == nil {
		err = New(http.StatusInternalServerError, "server_error", "server_error", "unknown error")
	}
	c.JSON(safeStatus(err.HTTPStatus), gin.H{"error": err})
	c.Abort()
}

// AbortWith constructs an APIError from the provided fields and aborts.
func AbortWith(c *gin.Context, status int, typ, message string) {
	if strings.TrimSpace(typ) == "" {
		typ = "server_error"
	}
	if strings.TrimSpace(message) == "" {
		message = "internal error"
	}
	Abort(c, New(safeStatus(status), typ, typ, message))
}

func safeStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusInternalServerError
}
