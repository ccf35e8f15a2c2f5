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
	"github.com/turtacn/oidc-core/pkg/errors"
)

type resolverDeps struct {
	servers *mocks.MockServerConfigurationRepository
	clients *mocks.MockClientConfigurationRepository
	jose    *mocks.MockJoseHandler
	gateway *mocks.MockRequestObjectGateway
}

func newTestResolver(t *testing.T) (*RequestResolver, resolverDeps) {
	t.Helper()
	deps := resolverDeps{
		servers: new(mocks.MockServerConfigurationRepository),
		clients: new(mocks.MockClientConfigurationRepository),
		jose:    new(mocks.MockJoseHandler),
		gateway: new(mocks.MockRequestObjectGateway),
	}
	r := NewRequestResolver(deps.servers, deps.clients, deps.jose, deps.gateway, testLogger)
	r.now = fixedClock
	return r, deps
}

func (d resolverDeps) expectConfiguration() {
	d.servers.On("Get", mock.Anything, testTenant).Return(newTestServer(), nil)
	d.clients.On("Get", mock.Anything, testTenant, testClientID).Return(newTestClient(), nil)
}

func TestResolve_NormalPattern(t *testing.T) {
	r, deps := newTestResolver(t)
	deps.expectConfiguration()

	reqCtx, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{
		"client_id":     testClientID,
		"response_type": "id_token code",
		"redirect_uri":  testRedirect,
		"scope":         "openid profile openid",
		"state":         "xyz",
		"nonce":         "n-0S6",
		"prompt":        "none",
		"max_age":       "300",
		"claims":        `{"id_token":{"email":{"essential":true}}}`,
	})
	require.NoError(t, err)

	assert.Equal(t, constants.RequestPatternNormal, reqCtx.Pattern)
	assert.False(t, reqCtx.Jose.Exists())
	req := reqCtx.Request
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, constants.ResponseTypeCodeIDToken, req.ResponseType)
	assert.Equal(t, []string{"openid", "profile"}, req.Scopes)
	assert.Equal(t, constants.ProfileOIDC, req.Profile)
	assert.True(t, req.IsPromptNone())
	require.NotNil(t, req.MaxAge)
	assert.Equal(t, int64(300), *req.MaxAge)
	assert.Equal(t, []string{"email"}, req.Claims.IDTokenClaimNames())
	assert.False(t, req.RequestObject)
	assert.Equal(t, fixedNow.Add(constants.AuthorizationRequestDefaultTTL), req.ExpiresAt)
	deps.jose.AssertNotCalled(t, "ParseRequestObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_MissingClientID(t *testing.T) {
	r, deps := newTestResolver(t)
	deps.servers.On("Get", mock.Anything, testTenant).Return(newTestServer(), nil)

	_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{"response_type": "code"})

	br, ok := AsBadRequest(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeInvalidRequest, br.Code())
	assert.NotNil(t, br.Context)
	deps.clients.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_UnknownTenantOrClient(t *testing.T) {
	t.Run("tenant", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.servers.On("Get", mock.Anything, "nope").Return(nil, errors.ErrConfigurationNotFound("server", "nope"))

		_, err := r.Resolve(context.Background(), "nope", models.RequestParameters{"client_id": testClientID})

		br, ok := AsBadRequest(err)
		require.True(t, ok)
		assert.Equal(t, constants.ErrCodeConfigurationNotFound, br.Code())
		assert.Nil(t, br.Context)
	})

	t.Run("client", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.servers.On("Get", mock.Anything, testTenant).Return(newTestServer(), nil)
		deps.clients.On("Get", mock.Anything, testTenant, "ghost").Return(nil, errors.ErrConfigurationNotFound("client", "ghost"))

		_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{"client_id": "ghost"})

		br, ok := AsBadRequest(err)
		require.True(t, ok)
		assert.Equal(t, constants.ErrCodeConfigurationNotFound, br.Code())
		assert.Nil(t, br.Context.Client)
	})
}

func TestResolve_InfrastructureFailureIsNotABadRequest(t *testing.T) {
	r, deps := newTestResolver(t)
	boom := stderrors.New("connection refused")
	deps.servers.On("Get", mock.Anything, testTenant).Return(nil, boom)

	_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{"client_id": testClientID})

	assert.ErrorIs(t, err, boom)
	_, ok := AsBadRequest(err)
	assert.False(t, ok)
}

func TestResolve_RequestAndRequestURIAreExclusive(t *testing.T) {
	r, deps := newTestResolver(t)
	deps.expectConfiguration()

	_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{
		"client_id":   testClientID,
		"request":     "eyJ...",
		"request_uri": "https://rp.example.com/request.jwt",
	})

	br, ok := AsBadRequest(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeInvalidRequest, br.Code())
}

func TestResolve_RequestObjectByValue(t *testing.T) {
	r, deps := newTestResolver(t)
	deps.expectConfiguration()
	jose := &models.JoseContext{
		Raw:               "signed.request.object",
		Algorithm:         "PS256",
		SignatureVerified: true,
		Claims: map[string]interface{}{
			"iss":           testClientID,
			"aud":           testIssuer,
			"exp":           float64(fixedNow.Add(time.Minute).Unix()),
			"client_id":     testClientID,
			"response_type": "code id_token",
			"scope":         "openid payments",
			"nonce":         "from-object",
			"max_age":       float64(60),
			"claims":        map[string]interface{}{"userinfo": map[string]interface{}{"email": nil}},
		},
	}
	deps.jose.On("ParseRequestObject", mock.Anything, "signed.request.object", mock.Anything, mock.Anything).Return(jose, nil)

	reqCtx, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{
		"client_id":     testClientID,
		"response_type": "code",
		"scope":         "openid",
		"nonce":         "from-query",
		"request":       "signed.request.object",
	})
	require.NoError(t, err)

	assert.Equal(t, constants.RequestPatternRequestObject, reqCtx.Pattern)
	assert.Same(t, jose, reqCtx.Jose)
	req := reqCtx.Request
	assert.True(t, req.RequestObject)
	assert.Equal(t, constants.ResponseTypeCodeIDToken, req.ResponseType)
	assert.Equal(t, []string{"openid", "payments"}, req.Scopes)
	assert.Equal(t, constants.ProfileFAPIAdvance, req.Profile)
	assert.Equal(t, "from-object", req.Nonce)
	require.NotNil(t, req.MaxAge)
	assert.Equal(t, int64(60), *req.MaxAge)
	assert.Equal(t, []string{"email"}, req.Claims.UserInfoClaimNames())
}

func TestResolve_RequestObjectRejected(t *testing.T) {
	t.Run("invalid signature", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.expectConfiguration()
		deps.jose.On("ParseRequestObject", mock.Anything, "bad", mock.Anything, mock.Anything).Return(nil, stderrors.New("signature mismatch"))

		reqCtx, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{"client_id": testClientID, "request": "bad"})

		br, ok := AsBadRequest(err)
		require.True(t, ok)
		assert.Equal(t, constants.ErrCodeInvalidRequest, br.Code())
		assert.Equal(t, constants.RequestPatternRequestObject, reqCtx.Pattern)
	})

	t.Run("client_id mismatch", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.expectConfiguration()
		jose := &models.JoseContext{Raw: "jwt", Algorithm: "RS256", Claims: map[string]interface{}{"client_id": "someone-else"}}
		deps.jose.On("ParseRequestObject", mock.Anything, "jwt", mock.Anything, mock.Anything).Return(jose, nil)

		_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{"client_id": testClientID, "request": "jwt"})

		br, ok := AsBadRequest(err)
		require.True(t, ok)
		assert.Contains(t, br.Description(), "client_id")
	})
}

func TestResolve_RequestURI(t *testing.T) {
	const requestURI = "https://rp.example.com/request.jwt"

	t.Run("fetched and parsed", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.expectConfiguration()
		deps.gateway.On("Get", mock.Anything, requestURI).Return("remote.jwt", nil)
		jose := &models.JoseContext{Raw: "remote.jwt", Algorithm: "RS256", Claims: map[string]interface{}{"state": "remote-state"}}
		deps.jose.On("ParseRequestObject", mock.Anything, "remote.jwt", mock.Anything, mock.Anything).Return(jose, nil)

		reqCtx, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{
			"client_id":     testClientID,
			"response_type": "code",
			"request_uri":   requestURI,
		})
		require.NoError(t, err)
		assert.Equal(t, constants.RequestPatternRequestURI, reqCtx.Pattern)
		assert.Equal(t, "remote-state", reqCtx.Request.State)
		assert.Equal(t, requestURI, reqCtx.Request.RequestURI)
	})

	t.Run("unregistered", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.expectConfiguration()

		_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{
			"client_id":   testClientID,
			"request_uri": "https://evil.example.com/request.jwt",
		})

		br, ok := AsBadRequest(err)
		require.True(t, ok)
		assert.Equal(t, constants.ErrCodeInvalidRequestURI, br.Code())
		deps.gateway.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("fetch failure", func(t *testing.T) {
		r, deps := newTestResolver(t)
		deps.expectConfiguration()
		deps.gateway.On("Get", mock.Anything, requestURI).Return("", stderrors.New("404"))

		_, err := r.Resolve(context.Background(), testTenant, models.RequestParameters{
			"client_id":   testClientID,
			"request_uri": requestURI,
		})

		br, ok := AsBadRequest(err)
		require.True(t, ok)
		assert.Equal(t, constants.ErrCodeInvalidRequestURI, br.Code())
	})
}

func TestResolve_MalformedParameters(t *testing.T) {
	tests := []struct {
		name   string
		params models.RequestParameters
	}{
		{"claims", models.RequestParameters{"claims": "{not json"}},
		{"authorization_details", models.RequestParameters{"authorization_details": `{"type":"x"}`}},
		{"presentation_definition", models.RequestParameters{"presentation_definition": "[oops"}},
		{"max_age", models.RequestParameters{"max_age": "ten"}},
		{"negative max_age", models.RequestParameters{"max_age": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, deps := newTestResolver(t)
			deps.expectConfiguration()
			tt.params["client_id"] = testClientID
			tt.params["response_type"] = "code"

			_, err := r.Resolve(context.Background(), testTenant, tt.params)

			br, ok := AsBadRequest(err)
			require.True(t, ok)
			assert.Equal(t, constants.ErrCodeInvalidRequest, br.Code())
		})
	}
}
