package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for request binding errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRequestTimeout is used when a request outlives its deadline
	ErrCodeRequestTimeout = "ERR_REQUEST_TIMEOUT"
)

// Idempotency error codes
const (
	// ErrCodeIdempotencyKeyInvalid is used when the Idempotency-Key header is malformed
	ErrCodeIdempotencyKeyInvalid = "ERR_IDEMPOTENCY_KEY_INVALID"
	// ErrCodeRequestInProgress is used when a request with the same key is still running
	ErrCodeRequestInProgress = "ERR_REQUEST_IN_PROGRESS"
)

// Tenant error codes
const (
	// ErrCodeTenantRequired is used when no tenant could be identified
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
	// ErrCodeTenantInvalid is used when the tenant header is not a UUID
	ErrCodeTenantInvalid = "ERR_TENANT_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a quote, account, lead or item is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeEditingLocked is used when an activated or archived quote is mutated
	ErrCodeEditingLocked = "ERR_EDITING_LOCKED"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when a transition is not allowed from the current status
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for quote rules without a dedicated code
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeMissingCatalogReference is used when a line item's catalog entry is gone
	ErrCodeMissingCatalogReference = "ERR_MISSING_CATALOG_REFERENCE"
)

// Orchestration error codes
const (
	// ErrCodeOrchestrationFailure is used when a co-term execution was rolled back
	ErrCodeOrchestrationFailure = "ERR_ORCHESTRATION_FAILURE"
	// ErrCodeIntegrationUnavailable is used when the finance system could not be reached
	ErrCodeIntegrationUnavailable = "ERR_INTEGRATION_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRequestTimeout:  http.StatusGatewayTimeout,

	ErrCodeIdempotencyKeyInvalid: http.StatusBadRequest,
	ErrCodeRequestInProgress:     http.StatusConflict,

	ErrCodeTenantRequired: http.StatusUnauthorized,
	ErrCodeTenantInvalid:  http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeEditingLocked:       http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:            http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:            http.StatusUnprocessableEntity,
	ErrCodeMissingCatalogReference: http.StatusUnprocessableEntity,

	ErrCodeOrchestrationFailure:   http.StatusInternalServerError,
	ErrCodeIntegrationUnavailable: http.StatusBadGateway,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes not in the map are quote rule violations raised by the domain and map to 422.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ITEM_NOT_FOUND":            ErrCodeNotFound,
	"CATALOG_ITEM_NOT_FOUND":    ErrCodeNotFound,
	"INTERNAL_ERROR":            ErrCodeInternal,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"EDITING_LOCKED":            ErrCodeEditingLocked,
	"MISSING_CATALOG_REFERENCE": ErrCodeMissingCatalogReference,
	"ORCHESTRATION_FAILURE":     ErrCodeOrchestrationFailure,
	"INTEGRATION_UNAVAILABLE":   ErrCodeIntegrationUnavailable,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Rule codes without a mapping (e.g. INVALID_COTERM) are prefixed as they are.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return "ERR_" + code
}
