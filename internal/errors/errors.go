// Package errors provides typed service errors for the HTTP boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error category.
type ErrorCode string

const (
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	CodeInvalidFormat     ErrorCode = "INVALID_FORMAT"
	CodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeUpstreamFailure   ErrorCode = "UPSTREAM_FAILURE"
	CodeInternal          ErrorCode = "INTERNAL"
)

// ServiceError is an error carrying an HTTP status and a stable code.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	cause      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a detail field and returns the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, message string, status int, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, cause: cause}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NotFound creates a 404 error.
func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, message, http.StatusNotFound, nil)
}

// InvalidRequest creates a 400 error.
func InvalidRequest(message string) *ServiceError {
	return newError(CodeInvalidRequest, message, http.StatusBadRequest, nil)
}

// InvalidFormat creates a 400 error for a malformed field.
func InvalidFormat(field, expected string) *ServiceError {
	e := newError(CodeInvalidFormat, fmt.Sprintf("invalid %s", field), http.StatusBadRequest, nil)
	return e.WithDetails("field", field).WithDetails("expected", expected)
}

// InvalidToken creates a 401 error for token validation failures.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeInvalidToken, "invalid token", http.StatusUnauthorized, cause)
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(limit int, window string) *ServiceError {
	e := newError(CodeRateLimitExceeded, "rate limit exceeded", http.StatusTooManyRequests, nil)
	return e.WithDetails("limit", limit).WithDetails("window", window)
}

// Conflict creates a 409 error.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, message, http.StatusConflict, nil)
}

// UpstreamFailure creates a 502 error for failed external calls.
func UpstreamFailure(message string, cause error) *ServiceError {
	return newError(CodeUpstreamFailure, message, http.StatusBadGateway, cause)
}

// Internal creates a 500 error.
func Internal(message string, cause error) *ServiceError {
	return newError(CodeInternal, message, http.StatusInternalServerError, cause)
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
