package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/oidc-core/internal/domain/models"
)

type MockServerConfigurationRepository struct {
	mock.Mock
}

func (m *MockServerConfigurationRepository) Get(ctx context.Context, tenantID string) (*models.ServerConfiguration, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServerConfiguration), args.Error(1)
}

type MockClientConfigurationRepository struct {
	mock.Mock
}

func (m *MockClientConfigurationRepository) Get(ctx context.Context, tenantID, clientID string) (*models.ClientConfiguration, error) {
	args := m.Called(ctx, tenantID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClientConfiguration), args.Error(1)
}

type MockAuthorizationRequestRepository struct {
	mock.Mock
}

func (m *MockAuthorizationRequestRepository) Register(ctx context.Context, request *models.AuthorizationRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockAuthorizationRequestRepository) Consume(ctx context.Context, tenantID, requestID string) (*models.AuthorizationRequest, error) {
	args := m.Called(ctx, tenantID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationRequest), args.Error(1)
}

type MockAuthorizationCodeGrantRepository struct {
	mock.Mock
}

func (m *MockAuthorizationCodeGrantRepository) Register(ctx context.Context, grant *models.AuthorizationCodeGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockAuthorizationCodeGrantRepository) Find(ctx context.Context, tenantID, code string) (*models.AuthorizationCodeGrant, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationCodeGrant), args.Error(1)
}

func (m *MockAuthorizationCodeGrantRepository) Delete(ctx context.Context, tenantID, code string) error {
	args := m.Called(ctx, tenantID, code)
	return args.Error(0)
}

type MockAuthorizedTokenRepository struct {
	mock.Mock
}

func (m *MockAuthorizedTokenRepository) Register(ctx context.Context, token *models.AuthorizedToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockAuthorizationGrantedRepository struct {
	mock.Mock
}

func (m *MockAuthorizationGrantedRepository) Find(ctx context.Context, tenantID, clientID, subject string) (*models.AuthorizationGranted, error) {
	args := m.Called(ctx, tenantID, clientID, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationGranted), args.Error(1)
}

func (m *MockAuthorizationGrantedRepository) Register(ctx context.Context, granted *models.AuthorizationGranted) error {
	args := m.Called(ctx, granted)
	return args.Error(0)
}

func (m *MockAuthorizationGrantedRepository) Update(ctx context.Context, granted *models.AuthorizationGranted) error {
	args := m.Called(ctx, granted)
	return args.Error(0)
}

type MockOAuthSessionRepository struct {
	mock.Mock
}

func (m *MockOAuthSessionRepository) Find(ctx context.Context, key models.OAuthSessionKey) (*models.OAuthSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthSession), args.Error(1)
}

func (m *MockOAuthSessionRepository) Register(ctx context.Context, session models.OAuthSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockOAuthSessionRepository) Update(ctx context.Context, session models.OAuthSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockOAuthSessionRepository) Delete(ctx context.Context, key models.OAuthSessionKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockUpstreamSessionRepository struct {
	mock.Mock
}

func (m *MockUpstreamSessionRepository) Bind(ctx context.Context, tenantID, upstreamSessionID, opSessionID string, expiresAt time.Time) error {
	args := m.Called(ctx, tenantID, upstreamSessionID, opSessionID, expiresAt)
	return args.Error(0)
}

func (m *MockUpstreamSessionRepository) Resolve(ctx context.Context, tenantID, upstreamSessionID string) (string, error) {
	args := m.Called(ctx, tenantID, upstreamSessionID)
	return args.String(0), args.Error(1)
}

type MockOPSessionRepository struct {
	mock.Mock
}

func (m *MockOPSessionRepository) Register(ctx context.Context, session models.OPSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockOPSessionRepository) Find(ctx context.Context, tenantID, opSessionID string) (*models.OPSession, error) {
	args := m.Called(ctx, tenantID, opSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OPSession), args.Error(1)
}

func (m *MockOPSessionRepository) AddClientSession(ctx context.Context, tenantID, opSessionID string, cs models.ClientSession, expiresAt time.Time) error {
	args := m.Called(ctx, tenantID, opSessionID, cs, expiresAt)
	return args.Error(0)
}

func (m *MockOPSessionRepository) Terminate(ctx context.Context, tenantID, opSessionID string) (*models.OPSession, error) {
	args := m.Called(ctx, tenantID, opSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OPSession), args.Error(1)
}
