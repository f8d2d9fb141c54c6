// Package apperror defines the application error taxonomy and its mapping to
// HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType int

const (
	InternalError ErrorType = iota
	ValidationError
	AuthenticationError
	AuthorizationError
	NotFoundError
)

// AppError carries a user-facing message plus an optional wrapped cause.
type AppError struct {
	Type    ErrorType
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

// StatusCode maps the error type to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ValidationError:
		return http.StatusBadRequest
	case AuthenticationError:
		return http.StatusUnauthorized
	case AuthorizationError:
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(errType ErrorType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewValidation(message string, err error) *AppError {
	return New(ValidationError, message, err)
}

func NewAuthentication(message string, err error) *AppError {
	return New(AuthenticationError, message, err)
}

func NewAuthorization(message string, err error) *AppError {
	return New(AuthorizationError, message, err)
}

func NewNotFound(message string, err error) *AppError {
	return New(NotFoundError, message, err)
}

func NewInternal(message string, err error) *AppError {
	return New(InternalError, message, err)
}

func is(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

func IsValidation(err error) bool     { return is(err, ValidationError) }
func IsAuthentication(err error) bool { return is(err, AuthenticationError) }
func IsAuthorization(err error) bool  { return is(err, AuthorizationError) }
func IsNotFound(err error) bool       { return is(err, NotFoundError) }
