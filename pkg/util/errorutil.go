package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/sla-service/internal/lock"
	"github.com/opsdesk/sla-service/internal/sla"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// engineErrors maps SLA engine sentinels to their boundary codes.
var engineErrors = []struct {
	target error
	code   string
	status int
}{
	{sla.ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest},
	{sla.ErrCalendarConfigInvalid, "CALENDAR_CONFIG_INVALID", http.StatusUnprocessableEntity},
	{sla.ErrAlreadyPaused, "ALREADY_PAUSED", http.StatusConflict},
	{sla.ErrNotPaused, "NOT_PAUSED", http.StatusConflict},
	{sla.ErrRuleNotFound, "RULE_NOT_FOUND", http.StatusInternalServerError},
	{lock.ErrNotAcquired, "LOCK_TIMEOUT", http.StatusServiceUnavailable},
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
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	for _, m := range engineErrors {
		if errors.Is(err, m.target) {
			return &DomainError{Code: m.code, Message: err.Error(), HTTPStatus: m.status, Err: err}
		}
	}
	return NewInternalError(err).(*DomainError)
}

// MapError is ToDomainError returning the error interface.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
