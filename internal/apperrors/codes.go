// Package apperrors provides the structured error taxonomy used across the
// search core: validation failures at the HTTP boundary, transient and
// contractual errors from the document store, startup failures, and
// unclassified stream-consumer errors.
package apperrors

// Category classifies an error for logging and metrics.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryStore      Category = "STORE"
	CategoryStartup    Category = "STARTUP"
	CategoryStream     Category = "STREAM"
	CategoryInternal   Category = "INTERNAL"
)

// Severity indicates how the caller should react.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Error codes, one per error kind the system distinguishes.
const (
	// ValidationError: rejected at the boundary before the compiler runs.
	ErrCodeValidation = "ERR_400_VALIDATION"

	// StoreTransientError: connection reset, timeout; retryable.
	ErrCodeStoreTransient = "ERR_503_STORE_TRANSIENT"

	// StoreContractError: a hit with no _id, or a mapping conflict.
	ErrCodeStoreContract = "ERR_500_STORE_CONTRACT"

	// StartupError: index-mapping assertion failed, or configuration missing.
	ErrCodeStartup = "ERR_550_STARTUP"

	// StreamError: unknown stream-consumer exception.
	ErrCodeStream = "ERR_560_STREAM"
)
