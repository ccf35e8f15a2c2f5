package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/oidc-core/internal/domain/models"
)

// MockJoseHandler is a mock implementation of service.JoseHandler
type MockJoseHandler struct {
	mock.Mock
}

func (m *MockJoseHandler) ParseRequestObject(ctx context.Context, raw string, server *models.ServerConfiguration, client *models.ClientConfiguration) (*models.JoseContext, error) {
	args := m.Called(ctx, raw, server, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JoseContext), args.Error(1)
}

func (m *MockJoseHandler) Sign(ctx context.Context, server *models.ServerConfiguration, claims map[string]interface{}, typ string) (string, error) {
	args := m.Called(ctx, server, claims, typ)
	return args.String(0), args.Error(1)
}

func (m *MockJoseHandler) SigningAlgorithm(ctx context.Context, server *models.ServerConfiguration) (string, error) {
	args := m.Called(ctx, server)
	return args.String(0), args.Error(1)
}

func (m *MockJoseHandler) Verify(ctx context.Context, raw string, jwks string) (map[string]interface{}, error) {
	args := m.Called(ctx, raw, jwks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

type MockRequestObjectGateway struct {
	mock.Mock
}

func (m *MockRequestObjectGateway) Get(ctx context.Context, requestURI string) (string, error) {
	args := m.Called(ctx, requestURI)
	return args.String(0), args.Error(1)
}
