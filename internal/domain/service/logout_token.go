package service

import (
	"context"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// LogoutTokenValidator validates received back-channel logout tokens. Every outcome, including
// malformed or hostile input, is reported through models.LogoutTokenValidation.
type LogoutTokenValidator struct {
	jose   JoseHandler
	jtis   repository.JTIRepository
	jtiTTL time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewLogoutTokenValidator creates a validator. A non-positive jtiTTL falls back to the default.
func NewLogoutTokenValidator(jose JoseHandler, jtis repository.JTIRepository, jtiTTL time.Duration, log logger.Logger) *LogoutTokenValidator {
	if jtiTTL <= 0 {
		jtiTTL = constants.LogoutTokenJTITTL
	}
	return &LogoutTokenValidator{
		jose:   jose,
		jtis:   jtis,
		jtiTTL: jtiTTL,
		logger: log.WithComponent("LogoutTokenValidator"),
		now:    time.Now,
	}
}

// Validate checks signature, issuer, audience, events, sub/sid, nonce and replay. It does not
// record the jti; use ValidateAndConsume for that.
func (v *LogoutTokenValidator) Validate(ctx context.Context, raw, expectedIssuer, expectedAudience, jwks string) models.LogoutTokenValidation {
	token, result := v.validateClaims(ctx, raw, expectedIssuer, expectedAudience, jwks)
	if !result.Valid {
		return result
	}
	used, err := v.jtis.IsUsed(ctx, token.JTI)
	if err != nil {
		v.logger.Warn(ctx, "replay check failed", logger.Err(err))
		return models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "replay check is unavailable")
	}
	if used {
		return models.LogoutTokenInvalid(constants.LogoutErrReplayAttack, "logout token jti has already been used")
	}
	return result
}

// ValidateAndConsume validates the token and records its jti with an atomic insert-if-absent,
// so two concurrent deliveries of the same token cannot both succeed.
func (v *LogoutTokenValidator) ValidateAndConsume(ctx context.Context, raw, expectedIssuer, expectedAudience, jwks string) models.LogoutTokenValidation {
	token, result := v.validateClaims(ctx, raw, expectedIssuer, expectedAudience, jwks)
	if !result.Valid {
		return result
	}
	inserted, err := v.jtis.MarkUsed(ctx, token.JTI, v.jtiTTL)
	if err != nil {
		v.logger.Warn(ctx, "replay guard failed", logger.Err(err))
		return models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "replay check is unavailable")
	}
	if !inserted {
		return models.LogoutTokenInvalid(constants.LogoutErrReplayAttack, "logout token jti has already been used")
	}
	return result
}

func (v *LogoutTokenValidator) validateClaims(ctx context.Context, raw, expectedIssuer, expectedAudience, jwks string) (models.LogoutToken, models.LogoutTokenValidation) {
	claims, err := v.jose.Verify(ctx, raw, jwks)
	if err != nil {
		v.logger.Debug(ctx, "logout token signature rejected", logger.Err(err))
		return models.LogoutToken{}, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token signature is invalid")
	}
	token, err := models.LogoutTokenFromClaims(claims)
	if err != nil {
		return models.LogoutToken{}, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token claims are malformed")
	}

	switch {
	case token.Issuer != expectedIssuer:
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidIssuer, "logout token issuer does not match")
	case token.Audience != expectedAudience:
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidAudience, "logout token audience does not match")
	case !token.HasBackChannelLogoutEvent():
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token does not contain the back-channel logout event")
	case !token.HasSubjectOrSession():
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token must contain sub or sid")
	case token.Nonce != "":
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token must not contain nonce")
	case token.JTI == "":
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token must contain jti")
	case !token.ExpiresAt.IsZero() && v.now().After(token.ExpiresAt):
		return token, models.LogoutTokenInvalid(constants.LogoutErrInvalidToken, "logout token has expired")
	}
	return token, models.LogoutTokenValid(token)
}
