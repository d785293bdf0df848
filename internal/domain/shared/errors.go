package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is match a detailed error against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying an underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes used across the quoting contexts
const (
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInvalidState            = "INVALID_STATE"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeEditingLocked           = "EDITING_LOCKED"
	CodeIntegrationUnavailable  = "INTEGRATION_UNAVAILABLE"
	CodeNoRateResolved          = "NO_RATE_RESOLVED"
	CodeMissingCatalogReference = "MISSING_CATALOG_REFERENCE"
	CodeOrchestrationFailure    = "ORCHESTRATION_FAILURE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")

	// ErrEditingLocked is returned when a quote that has been activated or archived is mutated
	ErrEditingLocked = NewDomainError(CodeEditingLocked, "Quote is locked for editing")
	// ErrIntegrationUnavailable marks a failed finance integration call; recovered locally
	ErrIntegrationUnavailable = NewDomainError(CodeIntegrationUnavailable, "Finance integration unavailable")
	// ErrNoRateResolved marks a tax fallback that found no rate; recovered locally
	ErrNoRateResolved = NewDomainError(CodeNoRateResolved, "No tax rate resolved")
	// ErrMissingCatalogReference marks a line item whose catalog entry was deleted
	ErrMissingCatalogReference = NewDomainError(CodeMissingCatalogReference, "Catalog reference no longer exists")
	// ErrOrchestrationFailure is returned when a co-term step fails; the transaction was rolled back
	ErrOrchestrationFailure = NewDomainError(CodeOrchestrationFailure, "Co-term execution failed")
)
