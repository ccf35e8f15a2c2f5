package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/interfaces/http/handlers"
	"github.com/turtacn/oidc-core/pkg/logger"
)

type fakeAuthorization struct{}

func (fakeAuthorization) Request(_ context.Context, tenantID string, _ models.RequestParameters) *dto.AuthorizationRequestResult {
	return &dto.AuthorizationRequestResult{Status: dto.AuthorizationStatusOK, TenantID: tenantID}
}

func (fakeAuthorization) Authorize(context.Context, string, string, *dto.AuthorizeRequest) *dto.AuthorizationRequestResult {
	return &dto.AuthorizationRequestResult{Status: dto.AuthorizationStatusAuthorized}
}

func (fakeAuthorization) Deny(context.Context, string, string, string) *dto.AuthorizationRequestResult {
	return &dto.AuthorizationRequestResult{Status: dto.AuthorizationStatusDenied}
}

type fakeLogout struct{}

func (fakeLogout) Logout(_ context.Context, tenantID, opSessionID string) (*dto.LogoutResponse, error) {
	return &dto.LogoutResponse{TenantID: tenantID, OPSessionID: opSessionID}, nil
}

func (fakeLogout) ReceiveBackChannelLogout(context.Context, string, string) *dto.BackChannelLogoutResult {
	return &dto.BackChannelLogoutResult{StatusCode: http.StatusOK}
}

func newTestRouter(cfg config.ServerConfig) *Router {
	gin.SetMode(gin.TestMode)
	log := logger.NewNoopLogger()
	return NewRouter(cfg, log, nil, Handlers{
		Authorization: handlers.NewAuthorizationHandler(fakeAuthorization{}, log),
		Logout:        handlers.NewLogoutHandler(fakeLogout{}, log),
		Health:        handlers.NewHealthHandler(nil, log),
	})
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(config.ServerConfig{Host: "127.0.0.1", Port: 8080})

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/acme/v1/authorizations?client_id=c1", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/acme/v1/jwks", http.StatusNotFound},
		{http.MethodGet, "/debug/pprof/", http.StatusNotFound},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
		assert.Equal(t, tt.want, w.Code, tt.target)
	}
}

func TestRouter_NotFoundBody(t *testing.T) {
	r := newTestRouter(config.ServerConfig{})
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.JSONEq(t, `{"error":"not_found","error_description":"The requested resource was not found"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_CORSAndPprof(t *testing.T) {
	r := newTestRouter(config.ServerConfig{CORSOrigins: []string{"https://login.example.com"}, EnablePprof: true})

	req := httptest.NewRequest(http.MethodOptions, "/acme/v1/logout", nil)
	req.Header.Set("Origin", "https://login.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	assert.Equal(t, "https://login.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
