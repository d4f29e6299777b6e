package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/apperrors"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// ApiResponse wraps data in the format expected by the dashboard.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// ValidationErrorResponse writes a 400 carrying the per-field violations
// verbatim so clients can map them back onto form fields.
func ValidationErrorResponse(w http.ResponseWriter, reqErr *validation.RequestError) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	return json.NewEncoder(w).Encode(map[string]any{
		"error":   "validation_error",
		"message": reqErr.Error(),
		"details": reqErr.Violations,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// HandleServiceError maps a service error onto the response taxonomy.
// Validation errors surface their field detail; store failures are logged
// server-side and surfaced as the generic fallback message.
func HandleServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallbackMessage string) {
	var writeErr error

	var reqErr *validation.RequestError
	switch {
	case errors.As(err, &reqErr):
		writeErr = ValidationErrorResponse(w, reqErr)
	case errors.Is(err, apperrors.ErrNoActiveWebhook):
		writeErr = ErrorResponse(w, http.StatusNotFound, "not_found",
			"No active webhook configuration found for this automation type")
	case errors.Is(err, apperrors.ErrNotFound):
		writeErr = ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrCredentialInactive):
		writeErr = ErrorResponse(w, http.StatusBadRequest, "credential_inactive",
			"Credential is not active")
	case errors.Is(err, apperrors.ErrConflict):
		writeErr = ErrorResponse(w, http.StatusConflict, "conflict", "Resource already exists")
	default:
		logger.Error(fallbackMessage, zap.Error(err))
		writeErr = ErrorResponse(w, http.StatusInternalServerError, "internal_error", fallbackMessage)
	}

	if writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
