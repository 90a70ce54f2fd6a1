package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes for the coordination failure taxonomy.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyClaimed        = "ALREADY_CLAIMED"
	CodeLostRace              = "LOST_RACE"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeRoleNotAllowed        = "ROLE_NOT_ALLOWED"
	CodeJustificationRequired = "JUSTIFICATION_REQUIRED"
	CodeTransactionConflict   = "TRANSACTION_CONFLICT"
	CodeNotAuthenticated      = "NOT_AUTHENTICATED"
	CodeStoreUnavailable      = "STORE_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewAlreadyClaimed reports that another operator holds the ticket. Expected
// under load: callers route it to try-next logic, never log it as an error.
func NewAlreadyClaimed(ticketID, holder string) error {
	return NewDomainError(CodeAlreadyClaimed, "already taken by another operator", http.StatusConflict, map[string]any{
		"ticket_id": ticketID,
		"holder":    holder,
	})
}

// NewLostRace reports that a claim transaction found the ticket taken by a
// concurrent winner between pre-flight and commit.
func NewLostRace(ticketID string) error {
	return NewDomainError(CodeLostRace, "already taken by another operator", http.StatusConflict, map[string]any{
		"ticket_id": ticketID,
	})
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, "action not available in current state", http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

func NewRoleNotAllowed(role string) error {
	return NewDomainError(CodeRoleNotAllowed, "role not allowed for this transition", http.StatusForbidden, map[string]any{
		"role": role,
	})
}

func NewJustificationRequired(from, to string) error {
	return NewDomainError(CodeJustificationRequired, "transition requires a justification", http.StatusBadRequest, map[string]any{
		"from": from,
		"to":   to,
	})
}

func NewTransactionConflict(err error) error {
	return &DomainError{
		Code:       CodeTransactionConflict,
		Message:    "store transaction conflict",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewNotAuthenticated(message string) error {
	return NewDomainError(CodeNotAuthenticated, message, http.StatusUnauthorized, nil)
}

func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "backing store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given taxonomy code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func MapError(err error) error {
	return ToDomainError(err)
}
