package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/service/mocks"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
)

func captureSign(jose *mocks.MockJoseHandler, typ string, out *map[string]interface{}) {
	jose.On("Sign", mock.Anything, mock.Anything, mock.Anything, typ).
		Run(func(args mock.Arguments) { *out = args.Get(2).(map[string]interface{}) }).
		Return("signed.jwt", nil)
}

func TestJWTIDTokenCreator_HybridHashes(t *testing.T) {
	jose := new(mocks.MockJoseHandler)
	c := NewJWTIDTokenCreator(jose)
	c.now = fixedClock
	var claims map[string]interface{}
	captureSign(jose, "", &claims)
	jose.On("SigningAlgorithm", mock.Anything, mock.Anything).Return("RS256", nil)

	authorize := newAuthorizeContext(newTestRequestContext(constants.ResponseTypeCodeTokenIDToken, "openid", "email"))
	token, err := c.Create(context.Background(), authorize, models.IDTokenCustomClaims{
		Code:        "Qcb0Orv1zh30vL1MPRsbm-diHiMwcLyZvn1arpZv-Jxf_11jnpEX3Tgfvk",
		AccessToken: "jHkWEdUXMU1BwAsC4vtUsZwnNvTIxEl0z9K3vx5KF0Y",
		State:       "xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", token)

	assert.Equal(t, testIssuer, claims["iss"])
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, testClientID, claims["aud"])
	assert.Equal(t, "n-0S6", claims["nonce"])
	assert.Equal(t, "sid-1", claims["sid"])
	assert.Equal(t, fixedNow.Add(constants.IDTokenDefaultTTL).Unix(), claims["exp"])
	assert.Equal(t, fixedNow.Add(-5*time.Minute).Unix(), claims["auth_time"])
	assert.Equal(t, "LDktKdoQak3Pk0cnXxCltA", claims["c_hash"])
	assert.Equal(t, "77QmUPtjPfzWtF2AnpK9RQ", claims["at_hash"])
	assert.NotContains(t, claims, "s_hash", "s_hash is only issued under FAPI")
	assert.NotContains(t, claims, "email", "scope claims are released through userinfo when an access token is issued")
}

func TestJWTIDTokenCreator_FAPIStateHash(t *testing.T) {
	jose := new(mocks.MockJoseHandler)
	c := NewJWTIDTokenCreator(jose)
	var claims map[string]interface{}
	captureSign(jose, "", &claims)
	jose.On("SigningAlgorithm", mock.Anything, mock.Anything).Return("PS256", nil)

	authorize := newAuthorizeContext(newTestRequestContext(constants.ResponseTypeCodeIDToken, "openid", "accounts"))
	_, err := c.Create(context.Background(), authorize, models.IDTokenCustomClaims{Code: "code", State: "xyz"})
	require.NoError(t, err)

	assert.NotEmpty(t, claims["s_hash"])
	assert.NotContains(t, claims, "at_hash")
}

func TestJWTIDTokenCreator_HashFollowsSigningKey(t *testing.T) {
	jose := new(mocks.MockJoseHandler)
	c := NewJWTIDTokenCreator(jose)
	var claims map[string]interface{}
	captureSign(jose, "", &claims)
	jose.On("SigningAlgorithm", mock.Anything, mock.Anything).Return("ES512", nil)

	// the tenant declares nothing, the key is ES512
	reqCtx := newTestRequestContext(constants.ResponseTypeCodeIDToken, "openid")
	reqCtx.Server.SigningAlgorithm = ""
	_, err := c.Create(context.Background(), newAuthorizeContext(reqCtx), models.IDTokenCustomClaims{Code: "abc"})
	require.NoError(t, err)

	// left half of SHA-512("abc")
	assert.Equal(t, "3a81oZNherrMQXNJriBBMRLm-k6JqX6iCp7u5ktV05o", claims["c_hash"])
}

func TestJWTIDTokenCreator_SigningAlgorithmFailure(t *testing.T) {
	jose := new(mocks.MockJoseHandler)
	c := NewJWTIDTokenCreator(jose)
	jose.On("SigningAlgorithm", mock.Anything, mock.Anything).Return("", errors.ErrSigningKeyNotFound(testTenant))

	_, err := c.Create(context.Background(), newAuthorizeContext(newTestRequestContext(constants.ResponseTypeCodeIDToken, "openid")),
		models.IDTokenCustomClaims{Code: "abc"})
	assert.True(t, errors.HasCode(err, constants.ErrCodeServerError))
	jose.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestJWTIDTokenCreator_IDTokenOnlyReleasesScopeClaims(t *testing.T) {
	jose := new(mocks.MockJoseHandler)
	c := NewJWTIDTokenCreator(jose)
	var claims map[string]interface{}
	captureSign(jose, "", &claims)

	reqCtx := newTestRequestContext(constants.ResponseTypeIDToken, "openid", "email", "profile")
	reqCtx.Request.Claims.IDToken = map[string]*models.ClaimRequirement{"sub": nil}
	_, err := c.Create(context.Background(), newAuthorizeContext(reqCtx), models.IDTokenCustomClaims{State: "xyz"})
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", claims["email"])
	assert.Equal(t, true, claims["email_verified"])
	assert.Equal(t, "Jane Doe", claims["name"])
	assert.NotContains(t, claims, "given_name", "empty claims are not released")
	assert.Equal(t, "user-1", claims["sub"])
}

func TestJWTAccessTokenCreator_Create(t *testing.T) {
	jose := new(mocks.MockJoseHandler)
	c := NewJWTAccessTokenCreator(jose)
	c.now = fixedClock
	var claims map[string]interface{}
	captureSign(jose, AccessTokenJWTType, &claims)

	reqCtx := newTestRequestContext(constants.ResponseTypeToken, "openid", "payments")
	reqCtx.Request.AuthorizationDetails = models.AuthorizationDetails{{"type": "payment_initiation"}}
	token, err := c.Create(context.Background(), newAuthorizeContext(reqCtx))
	require.NoError(t, err)

	assert.Equal(t, "signed.jwt", token.Value)
	assert.Equal(t, constants.TokenTypeBearer, token.TokenType)
	assert.Equal(t, int64(3600), token.ExpiresIn())
	assert.Equal(t, []string{"openid", "payments"}, token.Scopes)
	assert.Equal(t, token.JTI, claims["jti"])
	assert.Equal(t, testClientID, claims["client_id"])
	assert.Equal(t, "openid payments", claims["scope"])
	assert.Contains(t, claims, "authorization_details")
}
