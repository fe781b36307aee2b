package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error for the UI layer.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindDecode     Kind = "decode"
	KindSession    Kind = "session"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// GenericFailureMessage is shown to users when the cause is not theirs to fix.
const GenericFailureMessage = "Something went wrong. Please try again."

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validation wraps a 4xx answer whose message is shown to the user verbatim.
func Validation(code int, message string) *Error {
	if code < 400 || code >= 500 {
		code = http.StatusBadRequest
	}
	if message == "" {
		message = http.StatusText(code)
	}
	return New(code, KindValidation, message, nil)
}

// Network wraps transport and upstream 5xx failures behind a generic message.
func Network(err error) *Error {
	return New(http.StatusBadGateway, KindNetwork, GenericFailureMessage, err)
}

// Decode reports a payload that could not be parsed into its schema.
func Decode(err error) *Error {
	return New(http.StatusBadGateway, KindDecode, "Unexpected response from server", err)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

// Storage reports a failed device store read or write.
func Storage(err error) *Error {
	return New(http.StatusServiceUnavailable, KindInternal, "Device storage unavailable", err)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, message, err)
}

// From converts any error into an *Error, keeping typed errors intact.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

// KindOf returns the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Common error types
var (
	ErrUnauthorized        = New(http.StatusUnauthorized, KindValidation, "Unauthorized", nil)
	ErrInvalidToken        = New(http.StatusUnauthorized, KindValidation, "Invalid or expired token", nil)
	ErrSessionInitializing = New(http.StatusServiceUnavailable, KindSession, "Session is still initializing, please retry", nil)
)

// Respond writes err as the JSON error body used by every handler.
func Respond(c *gin.Context, err *Error) {
	c.JSON(err.Code, gin.H{"error": err.Message, "kind": err.Kind})
}

// Error middleware for Gin
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, From(c.Errors.Last().Err))
			c.Abort()
		}
	}
}
