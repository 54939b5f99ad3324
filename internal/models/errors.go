package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindAuthorization   ErrorKind = "authorization"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindConflict        ErrorKind = "conflict"
	KindRateLimited     ErrorKind = "rate_limited"
	KindProvider        ErrorKind = "provider"
	KindPersistence     ErrorKind = "persistence"
)

// AppError is returned by repositories and services. Handlers translate
// Kind into a status code; Message is safe to show to the caller.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthenticatedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewRateLimitedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindRateLimited, Message: fmt.Sprintf(format, args...)}
}

func NewProviderError(message string, err error) *AppError {
	return &AppError{Kind: KindProvider, Message: message, Err: err}
}

func NewPersistenceError(message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything that is not an AppError
// as a persistence failure.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
