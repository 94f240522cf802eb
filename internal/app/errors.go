package app

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every DomainError unwraps to one of these so callers can use
// errors.Is without knowing the HTTP mapping.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrInvalid            = errors.New("invalid input")
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	kind    error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.kind
}

func domainError(kind error, status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
		kind:    kind,
	}
}

func unauthorized(message string) *DomainError {
	return domainError(ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED", message, nil)
}

func unauthenticated() *DomainError {
	return domainError(ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
}

func notFound(what string) *DomainError {
	return domainError(ErrNotFound, http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func invariantViolation(message string) *DomainError {
	return domainError(ErrInvariantViolation, http.StatusConflict, "INVARIANT_VIOLATION", message, nil)
}

func invalid(message string, details any) *DomainError {
	return domainError(ErrInvalid, http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}
