package service

import (
	stderrors "errors"
	"net/http"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
)

// OAuthBadRequest is a request error that must not be redirected: the redirect URI is unknown
// or untrusted. Context holds whatever was resolved before the failure and may be nil.
type OAuthBadRequest struct {
	errors.CBCError
	Context *models.OAuthRequestContext
}

// NewBadRequest wraps a 4xx CBCError with the partial request context.
func NewBadRequest(err errors.CBCError, reqCtx *models.OAuthRequestContext) *OAuthBadRequest {
	return &OAuthBadRequest{CBCError: err, Context: reqCtx}
}

// OAuthRedirectableBadRequest is a request error rendered to the client's redirect URI.
type OAuthRedirectableBadRequest struct {
	errors.CBCError
	Context *models.OAuthRequestContext
}

// NewRedirectableBadRequest creates a redirectable error carrying the request context.
func NewRedirectableBadRequest(code constants.ErrorCode, description string, reqCtx *models.OAuthRequestContext) *OAuthRedirectableBadRequest {
	return &OAuthRedirectableBadRequest{
		CBCError: errors.NewError(code, http.StatusFound, description, description),
		Context:  reqCtx,
	}
}

// AsRedirectable finds an OAuthRedirectableBadRequest in the chain of err.
func AsRedirectable(err error) (*OAuthRedirectableBadRequest, bool) {
	var target *OAuthRedirectableBadRequest
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsBadRequest finds an OAuthBadRequest in the chain of err.
func AsBadRequest(err error) (*OAuthBadRequest, bool) {
	var target *OAuthBadRequest
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}
