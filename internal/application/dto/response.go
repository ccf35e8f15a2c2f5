// Package dto provides data transfer objects for the application layer.
package dto

import (
	"time"

	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
)

// ErrorDTO is the OAuth error body returned for requests that cannot be redirected.
type ErrorDTO struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	TraceID          string `json:"trace_id,omitempty"`
}

// NewErrorDTO creates an error body from a code and description.
func NewErrorDTO(code constants.ErrorCode, description string) *ErrorDTO {
	return &ErrorDTO{Error: string(code), ErrorDescription: description}
}

// ErrorDTOFromError converts err. Client errors keep their code and description; anything else
// becomes a generic server_error so internal details are not exposed.
func ErrorDTOFromError(err error, traceID string) *ErrorDTO {
	resp := errors.ToGenericErrorResponse(err)
	return &ErrorDTO{Error: resp.Error, ErrorDescription: resp.ErrorDescription, TraceID: traceID}
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

// NewHealthResponse reports "ok" unless a component is not "ok".
func NewHealthResponse(components map[string]string) *HealthResponse {
	status := "ok"
	for _, v := range components {
		if v != "ok" {
			status = "degraded"
			break
		}
	}
	return &HealthResponse{Status: status, Components: components, Timestamp: time.Now().Unix()}
}
