// Package domain provides canonical error types for the gateway.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates a missing or malformed credential.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypePermission indicates a credential that maps to no tenant.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypeNotFound indicates a route was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeMethodNotAllowed indicates the route rejects the HTTP method.
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"

	// ErrorTypeRateLimit indicates the fixed-window request cap was hit.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeQuota indicates the monthly token quota would be exceeded.
	ErrorTypeQuota ErrorType = "quota"

	// ErrorTypeUpstream indicates an outbound provider or upstream call failed.
	ErrorTypeUpstream ErrorType = "upstream"

	// ErrorTypeServer indicates an internal server error or misconfiguration.
	ErrorTypeServer ErrorType = "server"
)

// APIError is the canonical gateway error. Handlers translate it to a JSON
// error response with the appropriate HTTP status code.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// RetryAfter is the suggested retry delay in seconds for rate_limit errors
	RetryAfter int `json:"retry_after,omitempty"`

	// StatusCode overrides the default status for the error type
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeQuota:
		return http.StatusPaymentRequired
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	case ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrUnauthenticated creates a 401 authentication error.
func ErrUnauthenticated(message string) *APIError {
	return &APIError{Type: ErrorTypeAuthentication, Message: message}
}

// ErrForbidden creates a 403 permission error.
func ErrForbidden(message string) *APIError {
	return &APIError{Type: ErrorTypePermission, Message: message}
}

// ErrNotFound creates a 404 not-found error.
func ErrNotFound(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// ErrMethodNotAllowed creates a 405 error.
func ErrMethodNotAllowed(message string) *APIError {
	return &APIError{Type: ErrorTypeMethodNotAllowed, Message: message}
}

// ErrRateLimited creates a 429 error carrying the retry delay in seconds.
func ErrRateLimited(retryAfter int) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("rate limit exceeded, retry after %ds", retryAfter),
		RetryAfter: retryAfter,
	}
}

// ErrQuotaExceeded creates a 402 error for an exhausted monthly quota.
func ErrQuotaExceeded() *APIError {
	return &APIError{Type: ErrorTypeQuota, Message: "quota exceeded"}
}

// ErrBadRequest creates a 400 invalid-request error.
func ErrBadRequest(message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Message: message}
}

// ErrUpstream creates a 502 error for a failed outbound call.
func ErrUpstream(message string) *APIError {
	return &APIError{Type: ErrorTypeUpstream, Message: message}
}

// ErrServer creates a 500 internal error.
func ErrServer(message string) *APIError {
	return &APIError{Type: ErrorTypeServer, Message: message}
}
