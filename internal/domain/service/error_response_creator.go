package service

import (
	"context"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/errors"
)

// ErrorResponseCreator renders redirectable errors and deny decisions to the client's redirect URI,
// following the same delimiter and JARM rules as successful responses.
type ErrorResponseCreator struct {
	jose JoseHandler
	now  func() time.Time
}

func NewErrorResponseCreator(jose JoseHandler) *ErrorResponseCreator {
	return &ErrorResponseCreator{jose: jose, now: time.Now}
}

// FromRedirectableError renders a verification or prompt=none failure.
func (c *ErrorResponseCreator) FromRedirectableError(ctx context.Context, rbr *OAuthRedirectableBadRequest) (*models.AuthorizationErrorResponse, error) {
	return c.create(ctx, rbr.Context, string(rbr.Code()), rbr.Description())
}

// FromDenyReason renders a deny decision taken at the interaction step.
func (c *ErrorResponseCreator) FromDenyReason(ctx context.Context, reqCtx *models.OAuthRequestContext, reason models.DenyReason) (*models.AuthorizationErrorResponse, error) {
	if !reason.Valid() {
		return nil, errors.ErrInvalidRequest("deny reason is not supported")
	}
	return c.create(ctx, reqCtx, string(reason.ErrorCode()), reason.Description())
}

func (c *ErrorResponseCreator) create(ctx context.Context, reqCtx *models.OAuthRequestContext, code, description string) (*models.AuthorizationErrorResponse, error) {
	if reqCtx == nil || !reqCtx.IsRedirectable() {
		return nil, errors.ErrServerError("error response has no redirect target")
	}
	b := models.NewAuthorizationErrorResponseBuilder(reqCtx.RedirectURI(), reqCtx.ResponseModeValue(), reqCtx.ResponseMode(), reqCtx.IsJwtMode()).
		Issuer(reqCtx.Issuer()).
		State(reqCtx.State()).
		Error(code, description)
	if !reqCtx.IsJwtMode() {
		return b.Build(), nil
	}

	jwt, err := signJARM(ctx, c.jose, reqCtx, b.Build().JARMClaims(), c.now())
	if err != nil {
		return nil, err
	}
	return b.Response(jwt).Build(), nil
}
