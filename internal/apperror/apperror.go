// Package apperror defines the error taxonomy shared by services, repositories
// and HTTP handlers.
//
// Every AppError wraps one of the sentinel errors below, so callers can branch
// with errors.Is(err, apperror.ErrNotFound) no matter how many times the error
// was wrapped with fmt.Errorf("...: %w", err). The Code field names the exact
// failure (ProviderTimeout, DuplicateEmail, ...) and is what clients see in the
// "error" field of a JSON error body.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel error classes. Handlers map each class to one HTTP status.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTimeout      = errors.New("timeout")
	ErrUpstream     = errors.New("upstream failure")
)

// Code identifies a specific failure inside a class.
type Code string

const (
	CodeNotFound                Code = "NotFound"
	CodeValidation              Code = "ValidationError"
	CodeConstraintViolation     Code = "ConstraintViolation"
	CodeForbidden               Code = "Forbidden"
	CodeUnauthorized            Code = "Unauthorized"
	CodeProviderTimeout         Code = "ProviderTimeout"
	CodeProviderRejected        Code = "ProviderRejected"
	CodeProviderResponseInvalid Code = "ProviderResponseInvalid"
	CodeProfileFetchFailed      Code = "ProfileFetchFailed"
	CodeProfileIncomplete       Code = "ProfileIncomplete"
	CodeDuplicateEmail          Code = "DuplicateEmail"
	CodeNicknameRequired        Code = "NicknameRequired"
	CodeAccountDisabled         Code = "AccountDisabled"
	CodeInvalidOrExpiredToken   Code = "InvalidOrExpiredToken"
)

type AppError struct {
	Err     error  // sentinel class
	Code    Code   // specific failure
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the Code of the first AppError in err's chain, or "" if
// there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err's chain carries an AppError with the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a storage-level uniqueness violation.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeConstraintViolation,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// =========================================================================
// LOGIN FLOW FAILURES
// =========================================================================

func ProviderTimeout(message string) *AppError {
	return &AppError{Err: ErrTimeout, Code: CodeProviderTimeout, Message: message}
}

func ProviderRejected(message string) *AppError {
	return &AppError{Err: ErrUpstream, Code: CodeProviderRejected, Message: message}
}

func ProviderResponseInvalid(message string) *AppError {
	return &AppError{Err: ErrUpstream, Code: CodeProviderResponseInvalid, Message: message}
}

func ProfileFetchFailed(message string) *AppError {
	return &AppError{Err: ErrUpstream, Code: CodeProfileFetchFailed, Message: message}
}

func ProfileIncomplete(message string) *AppError {
	return &AppError{Err: ErrUpstream, Code: CodeProfileIncomplete, Message: message}
}

func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeDuplicateEmail,
		Message: fmt.Sprintf("an account with email %s already exists", email),
		Field:   "email",
	}
}

func NicknameRequired() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeNicknameRequired,
		Message: "the provider profile has no nickname; nickname consent is required to sign up",
		Field:   "nickname",
	}
}

func AccountDisabled(id string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeAccountDisabled,
		Message: fmt.Sprintf("account %s is disabled", id),
	}
}

func InvalidOrExpiredToken() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Code:    CodeInvalidOrExpiredToken,
		Message: "token is invalid or expired",
	}
}
