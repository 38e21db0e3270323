// Package errors provides unified error handling across the roleflow system.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the foundation for error handling in every layer (CLI, TUI,
// service). It standardizes error representation and maps each error kind to
// the process exit code surfaced at the command boundary.
//
// KEY RESPONSIBILITIES:
// - Define standardized error codes and categories for consistent identification
// - Provide the structured AppError type with severity levels and context
// - Own the error-kind-to-exit-code contract of the roleflow binary
//
// USAGE PATTERNS:
// - Create errors: use constructor functions like ValidationError(), TemplateNotFound()
// - Wrap errors: use Wrap() to add context to existing errors
// - Check kinds: use GetAppError() / HasCode() for type-safe handling
// - Exit codes: main() is the only caller of ExitCode()
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Template resolution errors
	ErrCodeTemplateNotFound  ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateAmbiguous ErrorCode = "TEMPLATE_AMBIGUOUS"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"

	// Variable resolution errors
	ErrCodeUnresolvedVariable ErrorCode = "UNRESOLVED_VARIABLE"

	// Profile resolution errors
	ErrCodeProfileNotFound     ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeNoProfileConfigured ErrorCode = "NO_PROFILE_CONFIGURED"

	// Runner errors
	ErrCodeRunnerNotFound ErrorCode = "RUNNER_NOT_FOUND"
	ErrCodeRunnerFailed   ErrorCode = "RUNNER_FAILED"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	// AI generation errors
	ErrCodeAIParse ErrorCode = "AI_PARSE_ERROR"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryResolution ErrorCategory = "resolution"
	CategoryRunner     ErrorCategory = "runner"
	CategoryStorage    ErrorCategory = "storage"
	CategorySystem     ErrorCategory = "system"
)

// Exit codes surfaced at the process boundary. A runner's own non-zero
// exit code takes precedence over ExitRunnerFailed.
const (
	ExitOK                 = 0
	ExitValidation         = 1
	ExitUnresolvedVariable = 2
	ExitProfileNotFound    = 3
	ExitTemplateNotFound   = 4
	ExitRunnerNotFound     = 5
	ExitRunnerFailed       = 6
)

// AppError represents a standardized application error
type AppError struct {
	Code     ErrorCode     `json:"code"`
	Message  string        `json:"message"`
	Details  string        `json:"details,omitempty"`
	Severity ErrorSeverity `json:"severity"`
	Category ErrorCategory `json:"category"`
	Cause    error         `json:"-"`

	// RunnerExit holds the child process's exit code for ErrCodeRunnerFailed.
	RunnerExit int `json:"runner_exit,omitempty"`

	// Missing holds the unresolved variable names for ErrCodeUnresolvedVariable.
	Missing []string `json:"missing,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:     code,
		Message:  message,
		Severity: severity,
		Category: category,
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput:
		return CategoryValidation, SeverityWarning

	case ErrCodeTemplateNotFound, ErrCodeProfileNotFound, ErrCodeNoProfileConfigured:
		return CategoryResolution, SeverityInfo
	case ErrCodeTemplateAmbiguous, ErrCodeAlreadyExists, ErrCodeUnresolvedVariable:
		return CategoryResolution, SeverityWarning

	case ErrCodeRunnerNotFound, ErrCodeRunnerFailed, ErrCodeAIParse:
		return CategoryRunner, SeverityError

	case ErrCodeStorageFailure:
		return CategoryStorage, SeverityError

	case ErrCodeInternalError:
		return CategorySystem, SeverityCritical

	default:
		return CategorySystem, SeverityError
	}
}

// GetAppError extracts an AppError from an error chain, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "internal error")
}

// HasCode reports whether the error chain carries the given code
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ExitCode maps an error to the process exit status. A RunnerFailed error
// propagates the child's own exit code when it is known.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	appErr := GetAppError(err)
	switch appErr.Code {
	case ErrCodeUnresolvedVariable:
		return ExitUnresolvedVariable
	case ErrCodeProfileNotFound, ErrCodeNoProfileConfigured:
		return ExitProfileNotFound
	case ErrCodeTemplateNotFound, ErrCodeTemplateAmbiguous:
		return ExitTemplateNotFound
	case ErrCodeRunnerNotFound:
		return ExitRunnerNotFound
	case ErrCodeRunnerFailed:
		if appErr.RunnerExit != 0 {
			return appErr.RunnerExit
		}
		return ExitRunnerFailed
	default:
		return ExitValidation
	}
}

// Common error constructors for frequently used errors

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func TemplateNotFound(name string) *AppError {
	return NewAppError(ErrCodeTemplateNotFound, fmt.Sprintf("template `%s` not found", name))
}

func TemplateAmbiguous(name string, choices []string) *AppError {
	e := NewAppError(ErrCodeTemplateAmbiguous, fmt.Sprintf("template name `%s` is ambiguous", name))
	e.Details = fmt.Sprintf("use one of: %s", strings.Join(choices, ", "))
	return e
}

func AlreadyExists(resource string) *AppError {
	return NewAppError(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func UnresolvedVariable(missing []string) *AppError {
	e := NewAppError(ErrCodeUnresolvedVariable,
		fmt.Sprintf("missing variable values for: %s", strings.Join(missing, ", ")))
	e.Missing = missing
	return e
}

func ProfileNotFound(name string) *AppError {
	return NewAppError(ErrCodeProfileNotFound, fmt.Sprintf("profile `%s` not found", name))
}

func NoProfileConfigured() *AppError {
	return NewAppError(ErrCodeNoProfileConfigured, "no runner profile configured")
}

func RunnerNotFound(command string) *AppError {
	return NewAppError(ErrCodeRunnerNotFound, fmt.Sprintf("runner command `%s` was not found in PATH", command))
}

func RunnerFailed(exitCode int) *AppError {
	e := NewAppError(ErrCodeRunnerFailed, fmt.Sprintf("runner exited with code %d", exitCode))
	e.RunnerExit = exitCode
	return e
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("storage operation failed: %s", operation))
}

func AIParseError(message string) *AppError {
	return NewAppError(ErrCodeAIParse, message)
}
