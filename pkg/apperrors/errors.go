package apperrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeInvalidState   Code = "INVALID_STATE"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInfrastructure Code = "INFRASTRUCTURE"
)

// AppError is the error type returned by every engine operation.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error {
	return New(CodeValidation, msg)
}

func InvalidState(msg string) error {
	return New(CodeInvalidState, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthorized, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Infrastructure(msg string, cause error) error {
	return Wrap(CodeInfrastructure, msg, cause)
}

// As reports whether err wraps an AppError and returns it.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// CodeInfrastructure for foreign errors.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeInfrastructure
}

func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Retryable reports whether retrying the same call can change its outcome.
// Only infrastructure failures qualify; every mutating operation is
// idempotent or guarded by a state check, so a retry never double-applies.
func Retryable(err error) bool {
	return Is(err, CodeInfrastructure)
}
