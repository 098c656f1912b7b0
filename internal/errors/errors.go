// Package errors defines the service error taxonomy shared by stores,
// services and HTTP handlers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of its message.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeDuplicateKey       Code = "DUPLICATE_KEY"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// ServiceError is an error carrying a code, a client-safe message and the HTTP
// status it maps to.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrNotFound           = &ServiceError{Code: CodeNotFound, HTTPStatus: http.StatusNotFound}
	ErrDuplicateKey       = &ServiceError{Code: CodeDuplicateKey, HTTPStatus: http.StatusConflict}
	ErrValidation         = &ServiceError{Code: CodeValidation, HTTPStatus: http.StatusBadRequest}
	ErrInvalidCredentials = &ServiceError{Code: CodeInvalidCredentials, HTTPStatus: http.StatusUnauthorized}
	ErrUnauthorized       = &ServiceError{Code: CodeUnauthorized, HTTPStatus: http.StatusUnauthorized}
	ErrForbidden          = &ServiceError{Code: CodeForbidden, HTTPStatus: http.StatusForbidden}
	ErrInvalidTransition  = &ServiceError{Code: CodeInvalidTransition, HTTPStatus: http.StatusConflict}
	ErrConflict           = &ServiceError{Code: CodeConflict, HTTPStatus: http.StatusConflict}
)

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports whether target is a ServiceError with the same code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e with key set in Details.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

func newError(code Code, status int, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg, HTTPStatus: status}
}

// Validation reports malformed or incomplete input.
func Validation(msg string) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, msg)
}

// Validationf formats a validation message.
func Validationf(format string, args ...any) *ServiceError {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound reports a missing resource.
func NotFound(resource string, id any) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetails("id", fmt.Sprint(id))
}

// DuplicateKey reports a uniqueness violation on field.
func DuplicateKey(resource, field string) *ServiceError {
	return newError(CodeDuplicateKey, http.StatusConflict, fmt.Sprintf("%s with this %s already exists", resource, field)).
		WithDetails("field", field)
}

// InvalidCredentials is returned for any failed password check.
func InvalidCredentials() *ServiceError {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, "invalid credentials")
}

// Unauthorized reports a missing or expired session.
func Unauthorized(msg string) *ServiceError {
	if msg == "" {
		msg = "authentication required"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// InvalidToken wraps a token parse or signature failure.
func InvalidToken(err error) *ServiceError {
	e := newError(CodeInvalidToken, http.StatusUnauthorized, "invalid token")
	e.Err = err
	return e
}

// Forbidden reports an authenticated caller lacking permission.
func Forbidden(msg string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// InvalidTransition reports a disallowed order status change.
func InvalidTransition(from, to string) *ServiceError {
	return newError(CodeInvalidTransition, http.StatusConflict, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails("from", from).
		WithDetails("to", to)
}

// Conflict reports a concurrent modification.
func Conflict(msg string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, msg)
}

// RateLimitExceeded reports throttling.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded").
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure. The cause is not shown to clients.
func Internal(msg string, err error) *ServiceError {
	e := newError(CodeInternal, http.StatusInternalServerError, msg)
	e.Err = err
	return e
}

// GetServiceError extracts the first ServiceError in err's chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus maps err to a response status, defaulting to 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil && se.HTTPStatus != 0 {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
