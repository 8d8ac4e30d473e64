package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/eprison/visitor-management/internal/domain"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResp := ErrorResponse{
		Error: message,
		Code:  code,
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// Common error codes
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeExpiredToken         = "EXPIRED_TOKEN"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeBlacklisted          = "VISITOR_BLACKLISTED"
	CodeDuplicateRequest     = "DUPLICATE_REQUEST"
	CodeEmergencyNotEligible = "EMERGENCY_NOT_ELIGIBLE"
	CodeNotApproved          = "VISIT_NOT_APPROVED"
	CodeWrongDate            = "WRONG_VISIT_DATE"
	CodeAlreadyCheckedIn     = "ALREADY_CHECKED_IN"
	CodeAlreadyCheckedOut    = "ALREADY_CHECKED_OUT"
	CodeNotCheckedIn         = "NOT_CHECKED_IN"
)

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

// FromDomainError maps service-layer errors onto the HTTP error surface.
// Unknown errors become a 500 without leaking internals.
func FromDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		BadRequest(w, vErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource not found")
	case errors.Is(err, domain.ErrBlacklisted):
		WriteError(w, http.StatusForbidden, "you are not permitted to request visits", CodeBlacklisted)
	case errors.Is(err, domain.ErrDuplicateRequest):
		WriteError(w, http.StatusConflict, "an identical visit request is already pending or approved", CodeDuplicateRequest)
	case errors.Is(err, domain.ErrEmergencyNotEligible):
		WriteError(w, http.StatusUnprocessableEntity, "emergency visit not available: cooldown period has not elapsed", CodeEmergencyNotEligible)
	case errors.Is(err, domain.ErrNotApproved):
		WriteError(w, http.StatusConflict, "visit is not in an approved state", CodeNotApproved)
	case errors.Is(err, domain.ErrWrongDate):
		WriteError(w, http.StatusConflict, "visit is not scheduled for today", CodeWrongDate)
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		WriteError(w, http.StatusConflict, "visitor has already been checked in", CodeAlreadyCheckedIn)
	case errors.Is(err, domain.ErrAlreadyCheckedOut):
		WriteError(w, http.StatusConflict, "visitor has already been checked out", CodeAlreadyCheckedOut)
	case errors.Is(err, domain.ErrNotCheckedIn):
		WriteError(w, http.StatusConflict, "visitor has not been checked in", CodeNotCheckedIn)
	default:
		InternalError(w, "internal server error")
	}
}
