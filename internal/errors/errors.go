package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeAPIKeyMissing    = "API_KEY_MISSING"
	CodeProviderError    = "PROVIDER_ERROR"
	CodeRetriesExhausted = "RETRIES_EXHAUSTED"
	CodeStageFailed      = "STAGE_FAILED"
	CodeCyclicDependency = "CYCLIC_DEPENDENCY"
	CodeRoleNotFound     = "ROLE_NOT_FOUND"
	CodeInputMissing     = "INPUT_MISSING"
)

// CheckError is a structured error with a code and actionable suggestion.
type CheckError struct {
	Code       string // machine-readable code (e.g. CONFIG_INVALID)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *CheckError) Unwrap() error {
	return e.Err
}

// New creates a CheckError with the given code and message.
func New(code, message string) *CheckError {
	return &CheckError{Code: code, Message: message}
}

// Wrap creates a CheckError wrapping an existing error.
func Wrap(code, message string, err error) *CheckError {
	return &CheckError{Code: code, Message: message, Err: err}
}

// WithSuggestion sets the suggestion and returns the same error.
func (e *CheckError) WithSuggestion(suggestion string) *CheckError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *CheckError) Is(target error) bool {
	var ce *CheckError
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// AsCode extracts the CheckError code from an error, or "" if not a CheckError.
func AsCode(err error) string {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not a CheckError.
func Suggestion(err error) string {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Suggestion
	}
	return ""
}
