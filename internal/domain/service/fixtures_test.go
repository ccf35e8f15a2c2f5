package service

import (
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

const (
	testTenant   = "tenant-a"
	testIssuer   = "https://op.example.com/tenant-a"
	testClientID = "client-1"
	testRedirect = "https://rp.example.com/callback"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var testLogger = logger.NewNoopLogger()

func newTestServer() *models.ServerConfiguration {
	return &models.ServerConfiguration{
		TenantID:               testTenant,
		TokenIssuer:            testIssuer,
		ResponseTypesSupported: []string{
			"code", "token", "id_token", "code token", "code id_token",
			"token id_token", "code token id_token", "vp_token", "vp_token id_token", "none",
		},
		ResponseModesSupported:             []string{"query", "fragment", "jwt", "query.jwt", "fragment.jwt"},
		ScopesSupported:                    []string{"openid", "profile", "email", "payments", "accounts"},
		AuthorizationDetailsTypesSupported: []string{"payment_initiation"},
		FAPIBaselineScopes:                 []string{"accounts"},
		FAPIAdvanceScopes:                  []string{"payments"},
		SigningKeyID:                       "kid-1",
		SigningAlgorithm:                   "RS256",
		AuthorizationResponseDuration:      time.Minute,
	}
}

func newTestClient() *models.ClientConfiguration {
	return &models.ClientConfiguration{
		TenantID:                testTenant,
		ClientID:                testClientID,
		RedirectURIs:            []string{testRedirect, "https://rp.example.com/other"},
		ResponseTypes:           []string{"code", "token", "id_token", "code token", "code id_token", "token id_token", "code token id_token", "vp_token", "vp_token id_token", "none"},
		RequestURIs:             []string{"https://rp.example.com/request.jwt"},
		TokenEndpointAuthMethod: "client_secret_basic",
	}
}

// newTestRequestContext builds a resolved context for the given response type.
func newTestRequestContext(rt constants.ResponseType, scopes ...string) *models.OAuthRequestContext {
	server := newTestServer()
	return &models.OAuthRequestContext{
		Pattern: constants.RequestPatternNormal,
		Jose:    &models.JoseContext{},
		Server:  server,
		Client:  newTestClient(),
		Request: &models.AuthorizationRequest{
			ID:           "req-1",
			TenantID:     testTenant,
			Profile:      server.ResolveProfile(scopes),
			ClientID:     testClientID,
			ResponseType: rt,
			Scopes:       scopes,
			RedirectURI:  testRedirect,
			State:        "xyz",
			Nonce:        "n-0S6",
			CreatedAt:    fixedNow,
			ExpiresAt:    fixedNow.Add(30 * time.Minute),
		},
	}
}

func newTestUser() models.User {
	return models.User{Subject: "user-1", Name: "Jane Doe", Email: "jane@example.com", EmailVerified: true}
}

func newTestAuthentication() models.Authentication {
	return models.Authentication{Methods: []string{"pwd"}, Time: fixedNow.Add(-5 * time.Minute), ACR: "urn:acr:1"}
}
