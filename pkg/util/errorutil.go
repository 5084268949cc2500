package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeAlreadyClaimed   = "ALREADY_CLAIMED"
	CodeStaleVersion     = "STALE_VERSION"
	CodeNotAssignee      = "NOT_ASSIGNEE"
	CodeAlreadyResolved  = "ALREADY_RESOLVED"
	CodeTicketResolved   = "TICKET_RESOLVED"
	CodeRetriesExhausted = "RETRIES_EXHAUSTED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// DomainError standardizes application errors. Conflict errors carry the
// authoritative current aggregate state in Details under "current" so a
// caller can refresh and retry with a correct version.
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
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

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewConflict reports a rejected conditional write. current is the
// authoritative ticket state at rejection time; it may be nil when the
// aggregate could not be refetched.
func NewConflict(code, message string, current any) error {
	details := map[string]any{}
	if current != nil {
		details["current"] = current
	}
	return NewDomainError(code, message, http.StatusConflict, details)
}

// NewContention reports transient contention (append retry budget spent).
// The operation is safe for the caller to retry as a whole.
func NewContention(message string, current any) error {
	details := map[string]any{}
	if current != nil {
		details["current"] = current
	}
	return NewDomainError(CodeRetriesExhausted, message, http.StatusServiceUnavailable, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
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
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError with the given code.
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
