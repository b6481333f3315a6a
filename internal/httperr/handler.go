// Package httperr maps domain errors onto HTTP responses for the command
// layer.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/apikey"
	"github.com/orgstack/orgdir/internal/ident"
	"github.com/orgstack/orgdir/internal/model"
	"github.com/orgstack/orgdir/internal/store"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	ErrorCodeUnknown        ErrorCode = "UNKNOWN"
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"

	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeValidationError  ErrorCode = "VALIDATION_ERROR"
	ErrorCodeIDSpaceExhausted ErrorCode = "ID_SPACE_EXHAUSTED"

	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler provides error handling functionality.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// HandleError classifies an error and writes the appropriate HTTP response.
// Not-found and validation failures are ordinary business outcomes; anything
// else is a store fault and is reported as an internal error.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-ID")

	switch {
	case errors.Is(err, store.ErrNotFound):
		h.WriteErrorResponse(w, http.StatusNotFound, ErrorCodeNotFound, err.Error(), requestID)
	case errors.Is(err, apikey.ErrKeyNotFound):
		h.WriteErrorResponse(w, http.StatusUnauthorized, ErrorCodeUnauthorized, err.Error(), requestID)
	case errors.Is(err, ident.ErrLocalIDOutOfRange):
		h.WriteErrorResponse(w, http.StatusUnprocessableEntity, ErrorCodeIDSpaceExhausted, err.Error(), requestID)
	case errors.Is(err, model.ErrEmptyName), errors.Is(err, model.ErrNegativeSalary):
		h.WriteErrorResponse(w, http.StatusUnprocessableEntity, ErrorCodeValidationError, err.Error(), requestID)
	default:
		h.logger.Error("Store fault",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error", requestID)
	}
}

// WriteValidationError writes a 400 response for malformed requests.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteRejection writes a 422 response for a write the store refused.
func (h *Handler) WriteRejection(w http.ResponseWriter, message, requestID string) {
	h.WriteErrorResponse(w, http.StatusUnprocessableEntity, ErrorCodeValidationError, message, requestID)
}

// WriteNotFound writes a 404 response.
func (h *Handler) WriteNotFound(w http.ResponseWriter, message, requestID string) {
	h.WriteErrorResponse(w, http.StatusNotFound, ErrorCodeNotFound, message, requestID)
}

// WriteErrorResponse writes a JSON error response.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
