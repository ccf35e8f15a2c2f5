// Package errors defines custom error types and error handling utilities for the OIDC protocol core.
// This package provides structured error types that map to OAuth 2.0 / OpenID Connect error codes and HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/turtacn/oidc-core/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// CBCError represents a structured error with additional metadata
type CBCError interface {
	error

	// Code returns the OAuth 2.0 error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) CBCError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) CBCError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

// baseError is the internal implementation of CBCError
type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

// Code returns the OAuth 2.0 error code
func (e *baseError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code
func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

// Description returns the error description
func (e *baseError) Description() string {
	return e.description
}

// Unwrap returns the underlying cause error
func (e *baseError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause error to the error chain
func (e *baseError) WithCause(cause error) CBCError {
	e.cause = cause
	return e
}

// WithMetadata adds additional context metadata
func (e *baseError) WithMetadata(key string, value interface{}) CBCError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all metadata
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new CBCError with the specified parameters
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) CBCError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error. The message doubles as the
// error_description rendered to the client.
func ErrInvalidRequest(message string) CBCError {
	return NewError(constants.ErrCodeInvalidRequest, http.StatusBadRequest, message, message)
}

// ErrInvalidRequestObject creates an invalid_request_object error
func ErrInvalidRequestObject(message string) CBCError {
	return NewError(constants.ErrCodeInvalidRequestObject, http.StatusBadRequest, message, message)
}

// ErrInvalidRequestURI creates an invalid_request_uri error
func ErrInvalidRequestURI(message string) CBCError {
	return NewError(constants.ErrCodeInvalidRequestURI, http.StatusBadRequest, message, message)
}

// ErrUnauthorizedClient creates an unauthorized_client error
func ErrUnauthorizedClient(message string) CBCError {
	return NewError(constants.ErrCodeUnauthorizedClient, http.StatusBadRequest, message, message)
}

// ErrUnsupportedResponseType creates an unsupported_response_type error
func ErrUnsupportedResponseType(message string) CBCError {
	return NewError(constants.ErrCodeUnsupportedResponseType, http.StatusBadRequest, message, message)
}

// ErrInvalidScope creates an invalid_scope error
func ErrInvalidScope(message string) CBCError {
	return NewError(constants.ErrCodeInvalidScope, http.StatusBadRequest, message, message)
}

// ErrServerError creates a server_error error. The description is fixed so that
// internal details never reach a redirect target.
func ErrServerError(message string) CBCError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"The authorization server encountered an unexpected condition that prevented it from fulfilling the request.",
		message,
	)
}

// ErrNotFound creates a not_found error
func ErrNotFound(message string) CBCError {
	return NewError(constants.ErrCodeNotFound, http.StatusNotFound, message, message)
}

// ================================================================================
// Domain-Specific Error Constructors
// ================================================================================

// ErrConfigurationNotFound reports a missing tenant or client configuration.
func ErrConfigurationNotFound(kind, id string) CBCError {
	return NewError(
		constants.ErrCodeConfigurationNotFound,
		http.StatusBadRequest,
		fmt.Sprintf("%s configuration is not found", kind),
		fmt.Sprintf("%s configuration is not found (%s)", kind, id),
	).WithMetadata("kind", kind).
		WithMetadata("id", id)
}

// ErrAuthorizationRequestNotFound reports an unknown or expired authorization request identifier.
func ErrAuthorizationRequestNotFound(id string) CBCError {
	return ErrNotFound(fmt.Sprintf("authorization request is not found (%s)", id)).
		WithMetadata("authorization_request_id", id)
}

// ErrSessionNotFound reports a missing session.
func ErrSessionNotFound(key string) CBCError {
	return ErrNotFound(fmt.Sprintf("session is not found (%s)", key)).
		WithMetadata("session_key", key)
}

// ErrSigningKeyNotFound reports a tenant without a usable signing key.
func ErrSigningKeyNotFound(tenantID string) CBCError {
	return ErrServerError(fmt.Sprintf("signing key not found for tenant %s", tenantID)).
		WithMetadata("tenant_id", tenantID)
}

// ErrMissingRequiredParameter creates a missing required parameter error
func ErrMissingRequiredParameter(paramName string) CBCError {
	return ErrInvalidRequest(fmt.Sprintf("authorization request does not contain %s parameter", paramName)).
		WithMetadata("parameter", paramName)
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// IsCBCError checks if an error is a CBCError
func IsCBCError(err error) bool {
	_, ok := AsCBCError(err)
	return ok
}

// AsCBCError finds the first CBCError in the chain of err.
func AsCBCError(err error) (CBCError, bool) {
	var cbcErr CBCError
	if stderrors.As(err, &cbcErr) {
		return cbcErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given OAuth error code.
func HasCode(err error, code constants.ErrorCode) bool {
	if cbcErr, ok := AsCBCError(err); ok {
		return cbcErr.Code() == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return HasCode(err, constants.ErrCodeNotFound) || HasCode(err, constants.ErrCodeConfigurationNotFound)
}

// WrapError wraps a generic error into a CBCError
func WrapError(err error, code constants.ErrorCode, message string) CBCError {
	var httpStatus int

	switch code {
	case constants.ErrCodeServerError:
		httpStatus = http.StatusInternalServerError
	case constants.ErrCodeTemporarilyUnavailable:
		httpStatus = http.StatusServiceUnavailable
	case constants.ErrCodeNotFound:
		httpStatus = http.StatusNotFound
	case constants.ErrCodeInvalidClient:
		httpStatus = http.StatusUnauthorized
	default:
		httpStatus = http.StatusBadRequest
	}

	return NewError(code, httpStatus, message, fmt.Sprintf("%s: %v", message, err)).WithCause(err)
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ToErrorResponse converts a CBCError to an ErrorResponse
func ToErrorResponse(err CBCError) *ErrorResponse {
	return &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
	}
}

// ToGenericErrorResponse converts any error to an ErrorResponse
func ToGenericErrorResponse(err error) *ErrorResponse {
	if cbcErr, ok := AsCBCError(err); ok && cbcErr.HTTPStatus() < http.StatusInternalServerError {
		return ToErrorResponse(cbcErr)
	}

	// Fallback to generic server error
	return &ErrorResponse{
		Error:            string(constants.ErrCodeServerError),
		ErrorDescription: "An unexpected error occurred",
	}
}

// ShouldLogError determines if an error should be logged at error severity
func ShouldLogError(err error) bool {
	if cbcErr, ok := AsCBCError(err); ok {
		return cbcErr.HTTPStatus() >= http.StatusInternalServerError
	}
	return true
}
