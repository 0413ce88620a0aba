package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeUnsupported ErrorType = "UNSUPPORTED"
	ErrTypeUpstream    ErrorType = "UPSTREAM"
	ErrTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeCalculation ErrorType = "CALCULATION"
	ErrTypeConfig      ErrorType = "CONFIG"
)

// AppError represents an application-specific error. Domain code raises
// the VALIDATION and NOT_FOUND kinds through NewDataValidationError and
// NewDataNotAvailableError.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError of the same type, so sentinel kinds such as
// ErrDataValidation can be used with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Kind sentinels for errors.Is
var (
	ErrDataValidation   = &AppError{Type: ErrTypeValidation}
	ErrDataNotAvailable = &AppError{Type: ErrTypeNotFound}
	ErrUnsupported      = &AppError{Type: ErrTypeUnsupported}
	ErrUpstream         = &AppError{Type: ErrTypeUpstream}
	ErrRateLimited      = &AppError{Type: ErrTypeRateLimit}
)

// NewDataValidationError reports input that fails domain validation rules
func NewDataValidationError(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeValidation, fmt.Sprintf(format, args...), nil)
}

// NewDataNotAvailableError reports data missing from an external source
func NewDataNotAvailableError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, message, cause)
}

// NewUnsupportedError reports an operation a provider does not implement
func NewUnsupportedError(provider, operation string) *AppError {
	return NewAppError(ErrTypeUnsupported, fmt.Sprintf("%s does not support %s", provider, operation), nil).
		WithContext("provider", provider)
}

// NewUpstreamError reports a failed call to an external API
func NewUpstreamError(provider, message string, cause error) *AppError {
	return NewAppError(ErrTypeUpstream, message, cause).WithContext("provider", provider)
}

// NewRateLimitError reports an upstream throttling response
func NewRateLimitError(provider, message string) *AppError {
	return NewAppError(ErrTypeRateLimit, message, nil).WithContext("provider", provider)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewCalculationError reports a numerical failure such as a singular matrix
func NewCalculationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeCalculation, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}
