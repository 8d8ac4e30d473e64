package domain

import (
	"errors"
	"fmt"
)

// Workflow errors surfaced by the ledger, decision engine, and gate. Handlers
// translate these into JSON error responses; nothing below the HTTP boundary
// knows about status codes.
var (
	// ErrNotFound deliberately covers cross-facility and wrong-status lookups
	// so callers cannot probe records outside their own facility.
	ErrNotFound = errors.New("not found")

	ErrBlacklisted          = errors.New("visitor is suspended from making visit requests")
	ErrDuplicateRequest     = errors.New("an identical visit request is already pending or approved")
	ErrEmergencyNotEligible = errors.New("not eligible for an emergency visit")

	ErrNotApproved        = errors.New("visit is not approved")
	ErrWrongDate          = errors.New("visit is not scheduled for today")
	ErrAlreadyCheckedIn   = errors.New("visitor is already checked in")
	ErrAlreadyCheckedOut  = errors.New("visitor is already checked out")
	ErrNotCheckedIn       = errors.New("visitor was never checked in")
)

// ValidationError reports malformed input, e.g. an alert reason that is too
// short. It wraps no other error.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
