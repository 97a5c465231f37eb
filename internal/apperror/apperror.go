// Package apperror defines the typed errors services return and the HTTP
// status each one maps to.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of an application error.
type ErrorType int

const (
	// InternalError is for unexpected failures.
	InternalError ErrorType = iota
	// DatabaseError represents an error originating from the database
	DatabaseError
	// AuthError means the caller could not be authenticated.
	AuthError
	// ForbiddenError means the caller is authenticated but may not act on the resource.
	ForbiddenError
	// NotFoundError represents a resource not found error
	NotFoundError
	// ValidationError represents a well-formed request with invalid fields.
	ValidationError
	// BadRequestError represents a malformed request.
	BadRequestError
	// ConflictError represents a conflict, e.g., resource already exists
	ConflictError
)

// AppError is a custom error type for the application.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error // Underlying error
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

// StatusCode returns the HTTP status code appropriate for the error type.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError:
		return http.StatusUnprocessableEntity
	case BadRequestError:
		return http.StatusBadRequest
	case ConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError.
func New(errType ErrorType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

// NewDatabaseError creates a new DatabaseError
func NewDatabaseError(message string, err error) *AppError {
	return New(DatabaseError, message, err)
}

// NewAuthError creates a new AuthError
func NewAuthError(message string, err error) *AppError {
	return New(AuthError, message, err)
}

// NewForbiddenError creates a new ForbiddenError
func NewForbiddenError(message string, err error) *AppError {
	return New(ForbiddenError, message, err)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, err error) *AppError {
	return New(NotFoundError, message, err)
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string, err error) *AppError {
	return New(ValidationError, message, err)
}

// NewBadRequestError creates a new BadRequestError
func NewBadRequestError(message string, err error) *AppError {
	return New(BadRequestError, message, err)
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, err error) *AppError {
	return New(ConflictError, message, err)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, err error) *AppError {
	return New(InternalError, message, err)
}

// ErrorResponse is the JSON body written for every error status.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ToResponse converts an AppError to an ErrorResponse. Only the user-facing
// message is exposed; server-side failures get a generic detail.
func (e *AppError) ToResponse() ErrorResponse {
	if e.StatusCode() >= http.StatusInternalServerError {
		return ErrorResponse{Detail: "Internal Server Error"}
	}
	return ErrorResponse{Detail: e.Message}
}

// From converts any error into an *AppError, wrapping unknown errors as
// InternalError.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("an unexpected error occurred", err)
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}
