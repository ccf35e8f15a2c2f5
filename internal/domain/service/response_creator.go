package service

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// ResponseCreator builds authorization responses for the ten response types. It never writes
// to storage: registering codes, tokens and grants is left to the caller.
type ResponseCreator struct {
	jose         JoseHandler
	accessTokens AccessTokenCreator
	idTokens     IDTokenCreator
	vpTokens     VPTokenCreator
	now          func() time.Time
}

// NewResponseCreator creates a new ResponseCreator. vpTokens may be nil when no verifiable
// presentation support is configured; vp_token requests then fail with a server error.
func NewResponseCreator(jose JoseHandler, accessTokens AccessTokenCreator, idTokens IDTokenCreator, vpTokens VPTokenCreator) *ResponseCreator {
	return &ResponseCreator{
		jose:         jose,
		accessTokens: accessTokens,
		idTokens:     idTokens,
		vpTokens:     vpTokens,
		now:          time.Now,
	}
}

// Create dispatches on the canonical response type of the request.
func (c *ResponseCreator) Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	reqCtx := authorize.RequestContext
	switch rt := reqCtx.ResponseType(); rt {
	case constants.ResponseTypeCode:
		return c.createCode(ctx, authorize)
	case constants.ResponseTypeToken:
		return c.createToken(ctx, authorize)
	case constants.ResponseTypeIDToken:
		return c.createIDToken(ctx, authorize)
	case constants.ResponseTypeCodeToken:
		return c.createCodeToken(ctx, authorize)
	case constants.ResponseTypeCodeIDToken:
		return c.createCodeIDToken(ctx, authorize)
	case constants.ResponseTypeTokenIDToken:
		return c.createTokenIDToken(ctx, authorize)
	case constants.ResponseTypeCodeTokenIDToken:
		return c.createCodeTokenIDToken(ctx, authorize)
	case constants.ResponseTypeVPToken:
		return c.createVPToken(ctx, authorize)
	case constants.ResponseTypeVPTokenIDToken:
		return c.createVPTokenIDToken(ctx, authorize)
	case constants.ResponseTypeNone:
		return c.createNone(ctx, authorize)
	default:
		return nil, errors.ErrUnsupportedResponseType(fmt.Sprintf("response_type (%s) has no response builder", rt))
	}
}

func (c *ResponseCreator) createCode(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	code, err := newAuthorizationCode()
	if err != nil {
		return nil, err
	}
	b.Code(code)
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	if _, err := c.addAccessToken(ctx, authorize, b); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createIDToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	if err := c.addIDToken(ctx, authorize, b, models.IDTokenCustomClaims{State: authorize.RequestContext.State()}); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createCodeToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	code, err := newAuthorizationCode()
	if err != nil {
		return nil, err
	}
	b.Code(code)
	if _, err := c.addAccessToken(ctx, authorize, b); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createCodeIDToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	code, err := newAuthorizationCode()
	if err != nil {
		return nil, err
	}
	b.Code(code)
	custom := models.IDTokenCustomClaims{Code: code, State: authorize.RequestContext.State()}
	if err := c.addIDToken(ctx, authorize, b, custom); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createTokenIDToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	token, err := c.addAccessToken(ctx, authorize, b)
	if err != nil {
		return nil, err
	}
	custom := models.IDTokenCustomClaims{AccessToken: token.Value, State: authorize.RequestContext.State()}
	if err := c.addIDToken(ctx, authorize, b, custom); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createCodeTokenIDToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	code, err := newAuthorizationCode()
	if err != nil {
		return nil, err
	}
	b.Code(code)
	token, err := c.addAccessToken(ctx, authorize, b)
	if err != nil {
		return nil, err
	}
	custom := models.IDTokenCustomClaims{Code: code, AccessToken: token.Value, State: authorize.RequestContext.State()}
	if err := c.addIDToken(ctx, authorize, b, custom); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createVPToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	if err := c.addVPToken(ctx, authorize, b); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createVPTokenIDToken(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	b := c.newBuilder(authorize)
	if err := c.addVPToken(ctx, authorize, b); err != nil {
		return nil, err
	}
	if err := c.addIDToken(ctx, authorize, b, models.IDTokenCustomClaims{State: authorize.RequestContext.State()}); err != nil {
		return nil, err
	}
	return c.finish(ctx, authorize, b)
}

func (c *ResponseCreator) createNone(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error) {
	return c.finish(ctx, authorize, c.newBuilder(authorize))
}

func (c *ResponseCreator) newBuilder(authorize *models.OAuthAuthorizeContext) *models.AuthorizationResponseBuilder {
	reqCtx := authorize.RequestContext
	return models.NewAuthorizationResponseBuilder(reqCtx.RedirectURI(), reqCtx.ResponseModeValue(), reqCtx.ResponseMode(), reqCtx.IsJwtMode())
}

func (c *ResponseCreator) addAccessToken(ctx context.Context, authorize *models.OAuthAuthorizeContext, b *models.AuthorizationResponseBuilder) (models.AccessToken, error) {
	token, err := c.accessTokens.Create(ctx, authorize)
	if err != nil {
		return models.AccessToken{}, errors.WrapError(err, constants.ErrCodeServerError, "access token creation failed")
	}
	b.AccessToken(token, authorize.ScopeValue())
	return token, nil
}

func (c *ResponseCreator) addIDToken(ctx context.Context, authorize *models.OAuthAuthorizeContext, b *models.AuthorizationResponseBuilder, custom models.IDTokenCustomClaims) error {
	idToken, err := c.idTokens.Create(ctx, authorize, custom)
	if err != nil {
		return errors.WrapError(err, constants.ErrCodeServerError, "id token creation failed")
	}
	b.IDToken(idToken)
	return nil
}

func (c *ResponseCreator) addVPToken(ctx context.Context, authorize *models.OAuthAuthorizeContext, b *models.AuthorizationResponseBuilder) error {
	if c.vpTokens == nil {
		return errors.ErrServerError("vp_token creator is not configured")
	}
	vpToken, err := c.vpTokens.Create(ctx, authorize)
	if err != nil {
		return errors.WrapError(err, constants.ErrCodeServerError, "vp token creation failed")
	}
	b.VPToken(vpToken)
	return nil
}

// finish appends iss and state and, in JARM mode, replaces the parameters with a signed response JWT.
func (c *ResponseCreator) finish(ctx context.Context, authorize *models.OAuthAuthorizeContext, b *models.AuthorizationResponseBuilder) (*models.AuthorizationResponse, error) {
	reqCtx := authorize.RequestContext
	b.Issuer(reqCtx.Issuer()).State(reqCtx.State())
	if !reqCtx.IsJwtMode() {
		return b.Build(), nil
	}

	claims := b.Build().JARMClaims()
	jwt, err := signJARM(ctx, c.jose, reqCtx, claims, c.now())
	if err != nil {
		return nil, err
	}
	return b.Response(jwt).Build(), nil
}

// signJARM adds the JARM envelope claims and signs with the tenant key.
func signJARM(ctx context.Context, jose JoseHandler, reqCtx *models.OAuthRequestContext, claims map[string]interface{}, now time.Time) (string, error) {
	claims["iss"] = reqCtx.Issuer()
	claims["aud"] = reqCtx.ClientID()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(reqCtx.Server.AuthorizationResponseLifetime()).Unix()
	jwt, err := jose.Sign(ctx, reqCtx.Server, claims, "")
	if err != nil {
		return "", errors.WrapError(err, constants.ErrCodeServerError, "authorization response signing failed")
	}
	return jwt, nil
}

func newAuthorizationCode() (string, error) {
	code, err := utils.RandomString(constants.AuthorizationCodeLength)
	if err != nil {
		return "", errors.WrapError(err, constants.ErrCodeServerError, "authorization code generation failed")
	}
	return code, nil
}
