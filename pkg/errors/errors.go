package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeBadRequest      ErrorType = "BAD_REQUEST"
	ErrorTypePayloadTooLarge ErrorType = "PAYLOAD_TOO_LARGE"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"

	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func newAppError(t ErrorType, status int, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: status,
	}
}

// NewValidation creates a validation error (422, the status request schema failures use)
func NewValidation(message string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusUnprocessableEntity, message)
}

// NewBadRequest creates an error for requests that are well formed but cannot be served
func NewBadRequest(message string) *AppError {
	return newAppError(ErrorTypeBadRequest, http.StatusBadRequest, message)
}

// NewPayloadTooLarge creates a 413 error
func NewPayloadTooLarge(message string) *AppError {
	return newAppError(ErrorTypePayloadTooLarge, http.StatusRequestEntityTooLarge, message)
}

// NewNotFound creates a not found error with the message returned verbatim
func NewNotFound(message string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message)
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message)
}

// NewRateLimited creates a rate limit error
func NewRateLimited(message string) *AppError {
	return newAppError(ErrorTypeRateLimit, http.StatusTooManyRequests, message)
}

// NewUnavailable creates a service unavailable error
func NewUnavailable(message string) *AppError {
	return newAppError(ErrorTypeUnavailable, http.StatusServiceUnavailable, message)
}

// NewTimeout creates a timeout error
func NewTimeout(message string) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message)
}

// NewInternal creates an internal error
func NewInternal(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message).WithCause(cause)
}

// NewExternal creates an error for a failing external tool or service
func NewExternal(message string, cause error) *AppError {
	return newAppError(ErrorTypeExternal, http.StatusInternalServerError, message).WithCause(cause)
}

// Wrap wraps an error with additional context, preserving the type of an AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if appErr := GetAppError(err); appErr != nil {
		return &AppError{
			Type:       appErr.Type,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			Code:       appErr.Code,
			Details:    appErr.Details,
			Cause:      appErr.Cause,
			HTTPStatus: appErr.HTTPStatus,
		}
	}

	return NewInternal(message, err)
}

// GetAppError extracts an AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// StatusCode returns the HTTP status for an error, 500 for anything that is not an AppError
func StatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
