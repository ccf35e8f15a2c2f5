package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

type MockAuthorizationService struct {
	mock.Mock
}

func (m *MockAuthorizationService) Request(ctx context.Context, tenantID string, params models.RequestParameters) *dto.AuthorizationRequestResult {
	return m.Called(ctx, tenantID, params).Get(0).(*dto.AuthorizationRequestResult)
}

func (m *MockAuthorizationService) Authorize(ctx context.Context, tenantID, requestID string, req *dto.AuthorizeRequest) *dto.AuthorizationRequestResult {
	return m.Called(ctx, tenantID, requestID, req).Get(0).(*dto.AuthorizationRequestResult)
}

func (m *MockAuthorizationService) Deny(ctx context.Context, tenantID, requestID, reason string) *dto.AuthorizationRequestResult {
	return m.Called(ctx, tenantID, requestID, reason).Get(0).(*dto.AuthorizationRequestResult)
}

type MockLogoutService struct {
	mock.Mock
}

func (m *MockLogoutService) Logout(ctx context.Context, tenantID, opSessionID string) (*dto.LogoutResponse, error) {
	args := m.Called(ctx, tenantID, opSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LogoutResponse), args.Error(1)
}

func (m *MockLogoutService) ReceiveBackChannelLogout(ctx context.Context, tenantID, logoutToken string) *dto.BackChannelLogoutResult {
	return m.Called(ctx, tenantID, logoutToken).Get(0).(*dto.BackChannelLogoutResult)
}

func setupRouter(authz AuthorizationService, logout LogoutService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logger.NewNoopLogger()
	ah := NewAuthorizationHandler(authz, log)
	lh := NewLogoutHandler(logout, log)
	r.GET("/:tenant/v1/authorizations", ah.Request)
	r.POST("/:tenant/v1/authorizations", ah.Request)
	r.POST("/:tenant/v1/authorizations/:id/authorize", ah.Authorize)
	r.POST("/:tenant/v1/authorizations/:id/deny", ah.Deny)
	r.POST("/:tenant/v1/logout", lh.Logout)
	r.POST("/:tenant/v1/backchannel-logout", lh.BackChannelLogout)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestAuthorizationHandler_Request(t *testing.T) {
	svc := new(MockAuthorizationService)
	r := setupRouter(svc, new(MockLogoutService))

	svc.On("Request", mock.Anything, "acme", models.RequestParameters{"client_id": "c1", "response_type": "code"}).
		Return(&dto.AuthorizationRequestResult{Status: dto.AuthorizationStatusOK, AuthorizationRequestID: "req-1"}).Once()
	svc.On("Request", mock.Anything, "acme", models.RequestParameters{"client_id": "c1", "prompt": "none"}).
		Return(&dto.AuthorizationRequestResult{
			Status:      dto.AuthorizationStatusRedirectableBadRequest,
			RedirectURI: "https://rp.example.com/cb?error=login_required",
		}).Once()
	svc.On("Request", mock.Anything, "acme", models.RequestParameters{"client_id": "unknown"}).
		Return(dto.NewErrorResult(dto.AuthorizationStatusBadRequest, "invalid_request", "unknown client")).Once()
	svc.On("Request", mock.Anything, "acme", models.RequestParameters{"client_id": "broken"}).
		Return(dto.NewErrorResult(dto.AuthorizationStatusServerError, "server_error", "An unexpected error occurred")).Once()

	w := serve(r, httptest.NewRequest(http.MethodGet, "/acme/v1/authorizations?client_id=c1&response_type=code", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authorization_request_id":"req-1"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/acme/v1/authorizations?client_id=c1&prompt=none", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://rp.example.com/cb?error=login_required", w.Header().Get("Location"))

	w = serve(r, formRequest("/acme/v1/authorizations", url.Values{"client_id": {"unknown"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid_request","error_description":"unknown client"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/acme/v1/authorizations?client_id=broken", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	svc.AssertExpectations(t)
}

func TestAuthorizationHandler_Authorize(t *testing.T) {
	svc := new(MockAuthorizationService)
	r := setupRouter(svc, new(MockLogoutService))

	svc.On("Authorize", mock.Anything, "acme", "req-1", mock.MatchedBy(func(req *dto.AuthorizeRequest) bool {
		return req.Subject == "user-1" && len(req.AuthMethods) == 1
	})).Return(&dto.AuthorizationRequestResult{
		Status:      dto.AuthorizationStatusAuthorized,
		RedirectURI: "https://rp.example.com/cb?code=abc",
	}).Once()

	body := `{"sub":"user-1","amr":["pwd"]}`
	req := httptest.NewRequest(http.MethodPost, "/acme/v1/authorizations/req-1/authorize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect_uri":"https://rp.example.com/cb?code=abc"`)

	for _, bad := range []string{`{}`, `{"sub":"u","email":"not-an-email"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/acme/v1/authorizations/req-1/authorize", strings.NewReader(bad))
		req.Header.Set("Content-Type", "application/json")
		w := serve(r, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	svc.AssertNumberOfCalls(t, "Authorize", 1)
}

func TestAuthorizationHandler_Deny(t *testing.T) {
	svc := new(MockAuthorizationService)
	r := setupRouter(svc, new(MockLogoutService))

	svc.On("Deny", mock.Anything, "acme", "req-1", "").
		Return(&dto.AuthorizationRequestResult{
			Status:      dto.AuthorizationStatusDenied,
			RedirectURI: "https://rp.example.com/cb?error=access_denied",
		}).Once()
	svc.On("Deny", mock.Anything, "acme", "gone", "consent_required").
		Return(dto.NewErrorResult(dto.AuthorizationStatusBadRequest, "invalid_request", "authorization request not found")).Once()

	w := serve(r, httptest.NewRequest(http.MethodPost, "/acme/v1/authorizations/req-1/deny", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"DENIED"`)

	w = serve(r, formRequest("/acme/v1/authorizations/gone/deny", url.Values{"reason": {"consent_required"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestLogoutHandler_Logout(t *testing.T) {
	svc := new(MockLogoutService)
	r := setupRouter(new(MockAuthorizationService), svc)

	resp := &dto.LogoutResponse{
		TenantID:         "acme",
		OPSessionID:      "op-1",
		Notifications:    []dto.LogoutNotificationDTO{},
		FrontChannelURLs: []string{"https://rp.example.com/fcl"},
		FrontChannelHTML: `<html><body><iframe src="https://rp.example.com/fcl"></iframe></body></html>`,
	}
	svc.On("Logout", mock.Anything, "acme", "op-1").Return(resp, nil).Twice()
	svc.On("Logout", mock.Anything, "other", "op-1").
		Return(nil, errors.ErrInvalidRequest("tenant is not configured")).Once()
	svc.On("Logout", mock.Anything, "acme", "op-2").
		Return(nil, stderrors.New("redis: connection refused")).Once()

	w := serve(r, formRequest("/acme/v1/logout", url.Values{"op_session_id": {"op-1"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.NotContains(t, w.Body.String(), "<iframe")

	req := formRequest("/acme/v1/logout", url.Values{"op_session_id": {"op-1"}})
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<iframe")

	w = serve(r, formRequest("/other/v1/logout", url.Values{"op_session_id": {"op-1"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, formRequest("/acme/v1/logout", url.Values{"op_session_id": {"op-2"}}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis")

	w = serve(r, formRequest("/acme/v1/logout", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestLogoutHandler_BackChannelLogout(t *testing.T) {
	svc := new(MockLogoutService)
	r := setupRouter(new(MockAuthorizationService), svc)

	svc.On("ReceiveBackChannelLogout", mock.Anything, "acme", "good.jwt").
		Return(&dto.BackChannelLogoutResult{StatusCode: http.StatusOK, Subject: "user-1", SessionID: "op-1"}).Once()
	svc.On("ReceiveBackChannelLogout", mock.Anything, "acme", "replayed.jwt").
		Return(&dto.BackChannelLogoutResult{
			StatusCode:       http.StatusBadRequest,
			Error:            "replay_attack",
			ErrorDescription: "logout token jti has already been used",
		}).Once()

	w := serve(r, formRequest("/acme/v1/backchannel-logout", url.Values{"logout_token": {"good.jwt"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = serve(r, formRequest("/acme/v1/backchannel-logout", url.Values{"logout_token": {"replayed.jwt"}}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"replay_attack","error_description":"logout token jti has already been used"}`, w.Body.String())

	w = serve(r, formRequest("/acme/v1/backchannel-logout", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}
