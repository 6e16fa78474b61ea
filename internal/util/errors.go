package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures across the access API.
type ErrorType string

const (
	// ClientInputError represents a missing or malformed request field
	ClientInputError ErrorType = "client input error"
	// AuthorizationError represents a valid request the caller may not make
	AuthorizationError ErrorType = "authorization error"
	// InvalidCredentialError represents a bypass token that fails verification
	InvalidCredentialError ErrorType = "invalid credential error"
	// ExpiredCredentialError represents a bypass token past its lifetime
	ExpiredCredentialError ErrorType = "expired credential error"
	// NotFoundError represents a missing resource
	NotFoundError ErrorType = "not found error"
	// ConflictError represents a duplicate resource
	ConflictError ErrorType = "conflict error"
	// UpstreamError represents a dependency failure (rule store, network)
	UpstreamError ErrorType = "upstream error"
)

// AccessError is the service-wide error type.
type AccessError struct {
	Type    ErrorType
	Message string
	Details interface{}
}

// Error implements the error interface
func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewClientInputError creates a new client input error
func NewClientInputError(message string) *AccessError {
	return &AccessError{Type: ClientInputError, Message: message}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(message string) *AccessError {
	return &AccessError{Type: AuthorizationError, Message: message}
}

// NewInvalidCredentialError creates a new invalid credential error
func NewInvalidCredentialError(message string) *AccessError {
	return &AccessError{Type: InvalidCredentialError, Message: message}
}

// NewExpiredCredentialError creates a new expired credential error
func NewExpiredCredentialError(message string) *AccessError {
	return &AccessError{Type: ExpiredCredentialError, Message: message}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AccessError {
	return &AccessError{Type: NotFoundError, Message: message}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AccessError {
	return &AccessError{Type: ConflictError, Message: message}
}

// NewUpstreamError creates a new upstream error wrapping the cause.
// The cause is kept for logging only and never leaks to clients.
func NewUpstreamError(message string, cause error) *AccessError {
	return &AccessError{Type: UpstreamError, Message: message, Details: cause}
}

// StatusCode maps an error to its HTTP status. Unrecognized errors are
// treated as upstream failures.
func StatusCode(err error) int {
	var ae *AccessError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Type {
	case ClientInputError:
		return http.StatusBadRequest
	case AuthorizationError:
		return http.StatusForbidden
	case InvalidCredentialError, ExpiredCredentialError:
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
