// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid strategy definitions, engine configuration and run requests
//   - Data errors (200-299): Missing, malformed or unreadable bar and indicator data
//   - Indicator errors (300-399): Indicator registration and calculation errors
//   - Strategy errors (400-499): Unsupported strategy kinds and version mismatches
//   - Simulation errors (500-599): Position state machine and simulation failures
//   - Backtest errors (600-699): Orchestration, cancellation and aggregation errors
//   - Persistence errors (700-799): Run store failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidStrategy, "strategy name is required")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeDataNotFound, "no bars found for symbol %s", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeDataNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfigurationError reports whether err belongs to the validation category.
// Configuration errors are fatal to a run and are never isolated per symbol.
func IsConfigurationError(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}

// IsDataError reports whether err belongs to the data category.
func IsDataError(err error) bool {
	code := GetCode(err)

	return code >= 200 && code < 300
}

// SymbolError attaches a symbol to an error raised while simulating it.
type SymbolError struct {
	Symbol string
	Err    error
}

// NewSymbolError creates a new SymbolError.
func NewSymbolError(symbol string, err error) *SymbolError {
	return &SymbolError{
		Symbol: symbol,
		Err:    err,
	}
}

// Error implements the error interface.
func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Symbol, e.Err)
}

// Unwrap returns the underlying error.
func (e *SymbolError) Unwrap() error {
	return e.Err
}
