package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryTransport represents failures reaching the backend (network, DNS, timeout)
	CategoryTransport ErrorCategory = "transport"
	// CategoryResponse represents non-2xx replies from the backend
	CategoryResponse ErrorCategory = "response"
	// CategoryBusiness represents 2xx replies that report success:false
	CategoryBusiness ErrorCategory = "business"
	// CategoryValidation represents input rejected before any backend call
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents a missing or invalid session
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryRateLimit represents triggers rejected by the local limiter
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategorySystem represents everything else
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// Detail returns a detail value by key, or nil
func (e *CategorizedError) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// Backend errors

// NewTransportError wraps a failure that prevented a response from arriving
func NewTransportError(method, path string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryTransport,
		StatusCode: http.StatusBadGateway,
		Code:       "TRANSPORT_ERROR",
		Message:    fmt.Sprintf("%s %s: backend unreachable", method, path),
		Cause:      cause,
		Details: map[string]interface{}{
			"method": method,
			"path":   path,
		},
	}
}

// NewResponseError creates an error for a non-2xx backend reply.
// message is the backend's own explanation when it gave one.
func NewResponseError(method, path string, status int, body []byte, message string) *CategorizedError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &CategorizedError{
		Category:   CategoryResponse,
		StatusCode: status,
		Code:       "BACKEND_RESPONSE",
		Message:    message,
		Details: map[string]interface{}{
			"method": method,
			"path":   path,
			"status": status,
			"body":   string(body),
		},
	}
}

// BusinessDetails holds the optional figures a backend attaches to success:false
type BusinessDetails struct {
	RequiredAmount *float64
	CurrentBalance *float64
}

// NewBusinessFailure creates an error for a 2xx reply carrying success:false
func NewBusinessFailure(operation, message string, d BusinessDetails) *CategorizedError {
	details := map[string]interface{}{
		"operation": operation,
	}
	if d.RequiredAmount != nil {
		details["required_amount"] = *d.RequiredAmount
	}
	if d.CurrentBalance != nil {
		details["current_balance"] = *d.CurrentBalance
	}
	return &CategorizedError{
		Category:   CategoryBusiness,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "BUSINESS_FAILURE",
		Message:    message,
		Details:    details,
	}
}

// User input errors

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewSessionStoreError creates an error for session store failures
func NewSessionStoreError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "SESSION_STORE_ERROR",
		Message:    fmt.Sprintf("session store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// CategoryOf returns the category of err, or "" for nil
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	return Categorize(err).Category
}

// IsTransport reports whether err is a transport failure
func IsTransport(err error) bool {
	return err != nil && CategoryOf(err) == CategoryTransport
}

// IsResponse reports whether err is a non-2xx backend reply
func IsResponse(err error) bool {
	return err != nil && CategoryOf(err) == CategoryResponse
}

// IsBusiness reports whether err is a success:false reply
func IsBusiness(err error) bool {
	return err != nil && CategoryOf(err) == CategoryBusiness
}

// IsValidation reports whether err was raised before any backend call
func IsValidation(err error) bool {
	return err != nil && CategoryOf(err) == CategoryValidation
}

// IsUnauthorized reports whether err is an authorization error
func IsUnauthorized(err error) bool {
	return err != nil && CategoryOf(err) == CategoryAuthorization
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
