package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
)

// AccessTokenJWTType is the typ header of JWT access tokens (RFC 9068).
const AccessTokenJWTType = "at+jwt"

// JWTAccessTokenCreator issues self-contained JWT access tokens.
type JWTAccessTokenCreator struct {
	jose JoseHandler
	now  func() time.Time
}

func NewJWTAccessTokenCreator(jose JoseHandler) *JWTAccessTokenCreator {
	return &JWTAccessTokenCreator{jose: jose, now: time.Now}
}

// Create signs an access token bound to the client, the user and the requested scopes.
func (c *JWTAccessTokenCreator) Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (models.AccessToken, error) {
	reqCtx := authorize.RequestContext
	server := reqCtx.Server
	now := c.now()
	token := models.AccessToken{
		JTI:       uuid.NewString(),
		TokenType: constants.TokenTypeBearer,
		Scopes:    authorize.Scopes(),
		IssuedAt:  now,
		ExpiresAt: now.Add(server.AccessTokenLifetime()),
	}

	claims := map[string]interface{}{
		"iss":       server.TokenIssuer,
		"sub":       authorize.User.Subject,
		"aud":       server.TokenIssuer,
		"client_id": reqCtx.ClientID(),
		"jti":       token.JTI,
		"iat":       now.Unix(),
		"exp":       token.ExpiresAt.Unix(),
	}
	if scope := authorize.ScopeValue(); scope != "" {
		claims["scope"] = scope
	}
	if authorize.Authentication.Exists() {
		claims["auth_time"] = authorize.Authentication.Time.Unix()
	}
	if reqCtx.Request != nil && len(reqCtx.Request.AuthorizationDetails) > 0 {
		claims["authorization_details"] = reqCtx.Request.AuthorizationDetails
	}

	value, err := c.jose.Sign(ctx, server, claims, AccessTokenJWTType)
	if err != nil {
		return models.AccessToken{}, err
	}
	token.Value = value
	return token, nil
}
