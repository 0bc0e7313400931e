package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an error by the pipeline stage that produced it.
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"
	ErrorTypeRetrieval     ErrorType = "RETRIEVAL"
	ErrorTypeEnrichment    ErrorType = "ENRICHMENT"
	ErrorTypeGeneration    ErrorType = "GENERATION"
	ErrorTypeImport        ErrorType = "IMPORT"
	ErrorTypeTimeout       ErrorType = "TIMEOUT"
	ErrorTypeInternal      ErrorType = "INTERNAL"
)

// AppError carries the error type alongside the message so callers can
// branch on the failing stage without string matching.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Cause      error     `json:"-"`
	HTTPStatus int       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError creates a validation error for rejected caller input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConfigurationError creates a configuration error. These are raised
// before any collaborator is contacted and are fatal at startup.
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewRetrievalError creates an error for a failed graph store operation.
func NewRetrievalError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeRetrieval,
		Message:    fmt.Sprintf("graph operation '%s' failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewEnrichmentError creates an error for a failed terminology lookup.
// Enrichment errors are recoverable: the affected fact proceeds without
// concept annotations.
func NewEnrichmentError(subject string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeEnrichment,
		Message:    fmt.Sprintf("terminology lookup for '%s' failed", subject),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewGenerationError creates an error for a failed LLM completion call.
func NewGenerationError(model string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeGeneration,
		Message:    fmt.Sprintf("answer generation with '%s' failed", model),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewImportError creates an error for a failed batch import. The store may
// be left partially cleared or loaded, so the caller must re-run the import.
func NewImportError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeImport,
		Message:    fmt.Sprintf("import failed during '%s'", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("operation '%s' timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err carries the given error type anywhere in its
// chain.
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

func IsConfiguration(err error) bool { return IsType(err, ErrorTypeConfiguration) }

func IsRetrieval(err error) bool { return IsType(err, ErrorTypeRetrieval) }

func IsEnrichment(err error) bool { return IsType(err, ErrorTypeEnrichment) }

func IsGeneration(err error) bool { return IsType(err, ErrorTypeGeneration) }

func IsImport(err error) bool { return IsType(err, ErrorTypeImport) }

func IsTimeout(err error) bool { return IsType(err, ErrorTypeTimeout) }

// Wrap adds context to an error, preserving its type when it is already an
// AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
