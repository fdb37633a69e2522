package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"

	// Adapter engine failures.
	ErrorTypeConfig         ErrorType = "config_error"
	ErrorTypeUpstream       ErrorType = "upstream_error"
	ErrorTypeTransport      ErrorType = "transport_error"
	ErrorTypeTimeout        ErrorType = "timeout_error"
	ErrorTypeUnknownBackend ErrorType = "unknown_backend"
)

// APIError represents a structured API error with type, code, param, and message.
// Status is the HTTP status the error is reported with.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
	Status  int       `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatus returns the status code the error should be reported with.
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeTimeout, ErrorTypeUnknownBackend:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// NewUnauthorizedError creates an APIError for failed authentication.
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// NewConfigError reports a backend definition that cannot be executed,
// for example a rendered request without a url.
func NewConfigError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeConfig,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// NewUpstreamError reports a provider response with a non-2xx status. The
// provider's status is passed through to the client.
func NewUpstreamError(status int, body string) *APIError {
	msg := body
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{
		Type:    ErrorTypeUpstream,
		Code:    strconv.Itoa(status),
		Message: msg,
		Status:  status,
	}
}

// NewTransportError reports a failure to reach a provider: a timeout, a
// refused connection or a DNS failure.
func NewTransportError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTransport,
		Message: "Request error: " + message,
		Status:  http.StatusInternalServerError,
	}
}

// NewAdapterError reports any other failure while talking to a provider.
func NewAdapterError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: "Unexpected error: " + message,
		Status:  http.StatusInternalServerError,
	}
}

// NewTimeoutError reports a poll loop that exceeded its time budget.
func NewTimeoutError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTimeout,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUnknownBackendError reports a backend name with no definition for the
// requested kind.
func NewUnknownBackendError(kind Kind, name string, known []string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnknownBackend,
		Param:   "backend",
		Message: fmt.Sprintf("Invalid %s backend %q. Choose from %v", kind, name, known),
		Status:  http.StatusBadRequest,
	}
}

// AsAPIError returns err as an *APIError. Errors that do not wrap one are
// reported as a 500 server_error carrying the original message.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewServerError(err.Error())
}
