// Package errors defines the stable error taxonomy for sintesi.
// Every failure mode maps to one ErrorCode so callers can branch on the
// class of failure without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseError indicates malformed, duplicate, unclosed, or orphaned anchors.
	// Scoped per file; never aborts processing of other files.
	ParseError ErrorCode = "PARSE_ERROR"
	// RegistryError indicates duplicate id on add, missing id on update or
	// drift check, or a malformed backing file on load. Command-fatal.
	RegistryError ErrorCode = "REGISTRY_ERROR"
	// InjectionError indicates a missing start or end marker at write time.
	// Surfaced per entry; the batch continues.
	InjectionError ErrorCode = "INJECTION_ERROR"
	// GenerationError indicates the content generator failed after retries.
	GenerationError ErrorCode = "GENERATION_ERROR"
	// WriteError indicates a filesystem failure while writing a document.
	WriteError ErrorCode = "WRITE_ERROR"
	// SymbolNotFound indicates a code_ref's symbol could not be resolved.
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// ConfigError indicates invalid or unreadable configuration.
	ConfigError ErrorCode = "CONFIG_ERROR"
	// InternalError indicates an unexpected error.
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// SintesiError represents a sintesi error with a stable code and message
type SintesiError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new SintesiError
func New(code ErrorCode, message string, cause error) *SintesiError {
	return &SintesiError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new SintesiError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *SintesiError {
	return &SintesiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *SintesiError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SintesiError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SintesiError) WithDetails(details interface{}) *SintesiError {
	e.Details = details
	return e
}

// CodeOf returns the ErrorCode of err, unwrapping as needed.
// Returns InternalError for non-sintesi errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var se *SintesiError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *SintesiError
	return stderrors.As(err, &se) && se.Code == code
}
