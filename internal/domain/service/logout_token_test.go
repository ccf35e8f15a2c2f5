package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/service/mocks"
	"github.com/turtacn/oidc-core/pkg/constants"
)

const testJWKS = `{"keys":[]}`

func newTestValidator() (*LogoutTokenValidator, *mocks.MockJoseHandler, *mocks.MockJTIRepository) {
	jose := new(mocks.MockJoseHandler)
	jtis := new(mocks.MockJTIRepository)
	v := NewLogoutTokenValidator(jose, jtis, 0, testLogger)
	v.now = fixedClock
	return v, jose, jtis
}

func validLogoutClaims() map[string]interface{} {
	token := models.NewLogoutToken(testIssuer, testClientID, "user-1", "sid-1", fixedNow, time.Minute)
	token.JTI = "jti-1"
	return token.ToClaimsMap()
}

func TestLogoutTokenValidator_ValidateAndConsume(t *testing.T) {
	v, jose, jtis := newTestValidator()
	jose.On("Verify", mock.Anything, "logout.jwt", testJWKS).Return(validLogoutClaims(), nil)
	jtis.On("MarkUsed", mock.Anything, "jti-1", constants.LogoutTokenJTITTL).Return(true, nil).Once()

	result := v.ValidateAndConsume(context.Background(), "logout.jwt", testIssuer, testClientID, testJWKS)

	require.True(t, result.Valid, result.ErrorDescription)
	require.NotNil(t, result.Token)
	assert.Equal(t, "user-1", result.Token.Subject)
	assert.Equal(t, "sid-1", result.Token.SessionID)
	jtis.AssertExpectations(t)
}

func TestLogoutTokenValidator_Replay(t *testing.T) {
	t.Run("consume", func(t *testing.T) {
		v, jose, jtis := newTestValidator()
		jose.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(validLogoutClaims(), nil)
		jtis.On("MarkUsed", mock.Anything, "jti-1", mock.Anything).Return(true, nil).Once()
		jtis.On("MarkUsed", mock.Anything, "jti-1", mock.Anything).Return(false, nil).Once()

		first := v.ValidateAndConsume(context.Background(), "logout.jwt", testIssuer, testClientID, testJWKS)
		second := v.ValidateAndConsume(context.Background(), "logout.jwt", testIssuer, testClientID, testJWKS)

		assert.True(t, first.Valid)
		assert.False(t, second.Valid)
		assert.Equal(t, constants.LogoutErrReplayAttack, second.ErrorCode)
	})

	t.Run("validate only", func(t *testing.T) {
		v, jose, jtis := newTestValidator()
		jose.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(validLogoutClaims(), nil)
		jtis.On("IsUsed", mock.Anything, "jti-1").Return(true, nil)

		result := v.Validate(context.Background(), "logout.jwt", testIssuer, testClientID, testJWKS)

		assert.Equal(t, constants.LogoutErrReplayAttack, result.ErrorCode)
		jtis.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replay store unavailable fails closed", func(t *testing.T) {
		v, jose, jtis := newTestValidator()
		jose.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(validLogoutClaims(), nil)
		jtis.On("IsUsed", mock.Anything, "jti-1").Return(false, stderrors.New("redis down"))

		result := v.Validate(context.Background(), "logout.jwt", testIssuer, testClientID, testJWKS)

		assert.False(t, result.Valid)
		assert.Equal(t, constants.LogoutErrInvalidToken, result.ErrorCode)
	})
}

func TestLogoutTokenValidator_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(claims map[string]interface{})
		code   string
	}{
		{"issuer mismatch", func(c map[string]interface{}) { c["iss"] = "https://other.example.com" }, constants.LogoutErrInvalidIssuer},
		{"audience mismatch", func(c map[string]interface{}) { c["aud"] = "client-2" }, constants.LogoutErrInvalidAudience},
		{"audience array of one", func(c map[string]interface{}) { c["aud"] = []interface{}{"client-2"} }, constants.LogoutErrInvalidAudience},
		{"audience array of two", func(c map[string]interface{}) { c["aud"] = []interface{}{testClientID, "client-2"} }, constants.LogoutErrInvalidToken},
		{"missing events", func(c map[string]interface{}) { delete(c, "events") }, constants.LogoutErrInvalidToken},
		{"wrong event", func(c map[string]interface{}) {
			c["events"] = map[string]interface{}{"http://example.com/other": map[string]interface{}{}}
		}, constants.LogoutErrInvalidToken},
		{"no sub and no sid", func(c map[string]interface{}) {
			delete(c, "sub")
			delete(c, "sid")
		}, constants.LogoutErrInvalidToken},
		{"nonce present", func(c map[string]interface{}) { c["nonce"] = "n" }, constants.LogoutErrInvalidToken},
		{"missing jti", func(c map[string]interface{}) { delete(c, "jti") }, constants.LogoutErrInvalidToken},
		{"expired", func(c map[string]interface{}) { c["exp"] = float64(fixedNow.Add(-time.Second).Unix()) }, constants.LogoutErrInvalidToken},
		{"malformed iat", func(c map[string]interface{}) { c["iat"] = "yesterday" }, constants.LogoutErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, jose, jtis := newTestValidator()
			claims := validLogoutClaims()
			tt.mutate(claims)
			jose.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(claims, nil)

			result := v.ValidateAndConsume(context.Background(), "logout.jwt", testIssuer, testClientID, testJWKS)

			assert.False(t, result.Valid)
			assert.Equal(t, tt.code, result.ErrorCode)
			assert.NotEmpty(t, result.ErrorDescription)
			jtis.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLogoutTokenValidator_SignatureFailure(t *testing.T) {
	v, jose, _ := newTestValidator()
	jose.On("Verify", mock.Anything, "tampered", testJWKS).Return(nil, stderrors.New("crypto/rsa: verification error"))

	result := v.Validate(context.Background(), "tampered", testIssuer, testClientID, testJWKS)

	assert.False(t, result.Valid)
	assert.Equal(t, constants.LogoutErrInvalidToken, result.ErrorCode)
	assert.Nil(t, result.Token)
}
