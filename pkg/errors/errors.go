package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies application errors for transport mapping.
type ErrorCode string

const (
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError carries a code and message across layer boundaries while
// preserving the underlying cause for errors.Is/As inspection.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates an error for malformed or missing input.
func NewInvalidInputError(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

// NewNotFoundError creates an error for a missing resource.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// NewAlreadyExistsError creates an error for a uniqueness conflict.
func NewAlreadyExistsError(message string) *AppError {
	return &AppError{Code: CodeAlreadyExists, Message: message}
}

// NewUnauthorizedError creates an error for a failed or missing credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewForbiddenError creates an error for an authenticated but disallowed request.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewInternalError creates an error for an unexpected internal failure.
func NewInternalError(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message}
}

// NewInternalErrorWithCause wraps an underlying error as an internal failure.
func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: cause}
}

// NewServiceUnavailableError creates an error for an unreachable upstream
// dependency, such as the LLM API or the NVD.
func NewServiceUnavailableError(message string) *AppError {
	return &AppError{Code: CodeServiceUnavail, Message: message}
}

// NewServiceUnavailableErrorWithCause wraps an underlying error as an
// unavailable-upstream failure.
func NewServiceUnavailableErrorWithCause(message string, cause error) *AppError {
	return &AppError{Code: CodeServiceUnavail, Message: message, Err: cause}
}

// IsNotFound reports whether err is an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsInvalidInput reports whether err is an AppError with CodeInvalidInput.
func IsInvalidInput(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeInvalidInput
	}
	return false
}

// IsAlreadyExists reports whether err is an AppError with CodeAlreadyExists.
func IsAlreadyExists(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeAlreadyExists
	}
	return false
}

// IsUnauthorized reports whether err is an AppError with CodeUnauthorized.
func IsUnauthorized(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeUnauthorized
	}
	return false
}

// IsServiceUnavailable reports whether err is an AppError with CodeServiceUnavail.
func IsServiceUnavailable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeServiceUnavail
	}
	return false
}
