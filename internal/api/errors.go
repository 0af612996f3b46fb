package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/logging"
)

// ErrorBody is the error object of an API error response
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInFlight           = "ACTION_IN_FLIGHT"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeBackendError       = "BACKEND_ERROR"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// mapServiceError maps a read failure to the status, code and message the
// client sees. Backend bodies stay in the log.
func mapServiceError(err error) (int, string, string) {
	cat := apperrors.Categorize(err)
	switch cat.Category {
	case apperrors.CategoryValidation:
		return http.StatusBadRequest, ErrCodeInvalidInput, cat.Message
	case apperrors.CategoryAuthorization:
		return http.StatusUnauthorized, ErrCodeUnauthorized, cat.Message
	case apperrors.CategoryTransport:
		return http.StatusBadGateway, ErrCodeBackendUnavailable, "Backend is unavailable"
	case apperrors.CategoryResponse:
		if cat.StatusCode == http.StatusUnauthorized || cat.StatusCode == http.StatusForbidden {
			return http.StatusUnauthorized, ErrCodeUnauthorized, "Session is no longer valid"
		}
		return http.StatusBadGateway, ErrCodeBackendError, "Backend request failed"
	case apperrors.CategoryBusiness:
		return http.StatusUnprocessableEntity, cat.Code, "Request was declined"
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"
	}
}

// respondServiceError logs err and answers with its mapped status
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapServiceError(err)
	logger := logging.FromContext(r.Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Warn("request rejected")
	}
	respondError(w, status, code, message, nil)
}
