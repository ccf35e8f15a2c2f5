package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/oidc-core/pkg/constants"
)

func newTestRequestContext(rt constants.ResponseType, mode constants.ResponseMode, profile constants.AuthorizationProfile) *OAuthRequestContext {
	return &OAuthRequestContext{
		Pattern: constants.RequestPatternNormal,
		Request: &AuthorizationRequest{
			TenantID:     "tenant-a",
			ClientID:     "client-1",
			ResponseType: rt,
			ResponseMode: mode,
			Profile:      profile,
			State:        "st",
		},
		Server: &ServerConfiguration{TenantID: "tenant-a", TokenIssuer: "https://op.example.com/tenant-a"},
		Client: &ClientConfiguration{ClientID: "client-1", RedirectURIs: []string{"https://rp.example.com/cb", "https://rp.example.com/cb2"}},
	}
}

func TestOAuthRequestContext_RedirectURIFallsBackToFirstRegistered(t *testing.T) {
	c := newTestRequestContext(constants.ResponseTypeCode, "", constants.ProfileOIDC)
	assert.Equal(t, "https://rp.example.com/cb", c.RedirectURI())

	c.Request.RedirectURI = "https://rp.example.com/cb2"
	assert.Equal(t, "https://rp.example.com/cb2", c.RedirectURI())
}

func TestOAuthRequestContext_ResponseModeValue(t *testing.T) {
	tests := []struct {
		name string
		rt   constants.ResponseType
		mode constants.ResponseMode
		want string
	}{
		{"code default", constants.ResponseTypeCode, "", "?"},
		{"none default", constants.ResponseTypeNone, "", "?"},
		{"token default", constants.ResponseTypeToken, "", "#"},
		{"hybrid default", constants.ResponseTypeCodeIDToken, "", "#"},
		{"explicit query wins", constants.ResponseTypeToken, constants.ResponseModeQuery, "?"},
		{"explicit fragment wins", constants.ResponseTypeCode, constants.ResponseModeFragment, "#"},
		{"query.jwt", constants.ResponseTypeCodeToken, constants.ResponseModeQueryJWT, "?"},
		{"bare jwt follows type", constants.ResponseTypeCode, constants.ResponseModeJWT, "?"},
		{"bare jwt hybrid", constants.ResponseTypeCodeIDToken, constants.ResponseModeJWT, "#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestRequestContext(tt.rt, tt.mode, constants.ProfileOIDC)
			assert.Equal(t, tt.want, c.ResponseModeValue())
		})
	}
}

func TestOAuthRequestContext_IsJwtMode(t *testing.T) {
	assert.False(t, newTestRequestContext(constants.ResponseTypeCode, "", constants.ProfileOIDC).IsJwtMode())
	assert.True(t, newTestRequestContext(constants.ResponseTypeCode, constants.ResponseModeJWT, constants.ProfileOIDC).IsJwtMode())
	assert.True(t, newTestRequestContext(constants.ResponseTypeCode, "", constants.ProfileFAPIAdvance).IsJwtMode())
	assert.False(t, newTestRequestContext(constants.ResponseTypeCodeIDToken, "", constants.ProfileFAPIAdvance).IsJwtMode())
	assert.True(t, newTestRequestContext(constants.ResponseTypeCodeIDToken, constants.ResponseModeFragmentJWT, constants.ProfileFAPIAdvance).IsJwtMode())
}

func TestOAuthRequestContext_PartialContext(t *testing.T) {
	c := &OAuthRequestContext{
		Server: &ServerConfiguration{TenantID: "t", TokenIssuer: "https://op"},
		Client: &ClientConfiguration{ClientID: "c", RedirectURIs: []string{"https://rp/cb"}},
	}
	assert.Equal(t, "https://rp/cb", c.RedirectURI())
	assert.Equal(t, "", c.State())
	assert.True(t, c.IsRedirectable())
	assert.Equal(t, "https://op:c", c.SessionKey().String())

	assert.False(t, (&OAuthRequestContext{}).IsRedirectable())
}
