package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the upstream credential is missing, expired, or invalid.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeForbidden indicates the caller is authenticated but lacks the required role.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeUpstream indicates a non-success response from the management API
	// that is neither a credential nor a permission failure.
	ErrCodeUpstream ErrorCode = "upstream"
	// ErrCodeConfigInconsistent indicates a client-observed invariant violation,
	// e.g. a tenant-admin session without a tenant context.
	ErrCodeConfigInconsistent ErrorCode = "config_inconsistent"
	// ErrCodeValidation indicates a payload that failed boundary validation.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal console error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError is a structured application error with a code, message, and optional cause.
// Upstream responses additionally carry the HTTP status, status text, and the
// best-effort parsed error body. It supports errors.Is and errors.As via Unwrap.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Status is the upstream HTTP status code (0 when not an upstream error)
	Status int
	// StatusText is the upstream HTTP status text (optional)
	StatusText string
	// Body is the best-effort parsed upstream error body (optional)
	Body map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized() *AppError {
	return &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "session expired or invalid",
		Status:     401,
		StatusText: "Unauthorized",
	}
}

// Forbidden creates a new Forbidden error carrying the server's message.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "you do not have permission to access this resource"
	}
	return &AppError{
		Code:       ErrCodeForbidden,
		Message:    message,
		Status:     403,
		StatusText: "Forbidden",
	}
}

// UpstreamParams groups the fields of an upstream API error.
type UpstreamParams struct {
	Status     int
	StatusText string
	Message    string
	Body       map[string]any
}

// Upstream creates a generic API error from a non-success upstream response.
func Upstream(p UpstreamParams) *AppError {
	if p.Message == "" {
		p.Message = fmt.Sprintf("HTTP %d", p.Status)
	}
	return &AppError{
		Code:       ErrCodeUpstream,
		Message:    p.Message,
		Status:     p.Status,
		StatusText: p.StatusText,
		Body:       p.Body,
	}
}

// ConfigInconsistent creates a configuration-inconsistency error.
func ConfigInconsistent(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfigInconsistent,
		Message: message,
	}
}

// ConfigInconsistentf creates a configuration-inconsistency error with formatted message.
func ConfigInconsistentf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeConfigInconsistent,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool {
	return isCode(err, ErrCodeUnauthorized)
}

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool {
	return isCode(err, ErrCodeForbidden)
}

// IsUpstream checks if an error is a generic upstream API error.
func IsUpstream(err error) bool {
	return isCode(err, ErrCodeUpstream)
}

// IsConfigInconsistent checks if an error is a configuration-inconsistency error.
func IsConfigInconsistent(err error) bool {
	return isCode(err, ErrCodeConfigInconsistent)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetStatus returns the upstream HTTP status from an error, or 0 if not present.
func GetStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}
