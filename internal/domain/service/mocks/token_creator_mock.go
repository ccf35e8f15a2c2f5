package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/oidc-core/internal/domain/models"
)

type MockIDTokenCreator struct {
	mock.Mock
}

func (m *MockIDTokenCreator) Create(ctx context.Context, authorize *models.OAuthAuthorizeContext, custom models.IDTokenCustomClaims) (string, error) {
	args := m.Called(ctx, authorize, custom)
	return args.String(0), args.Error(1)
}

type MockAccessTokenCreator struct {
	mock.Mock
}

func (m *MockAccessTokenCreator) Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (models.AccessToken, error) {
	args := m.Called(ctx, authorize)
	return args.Get(0).(models.AccessToken), args.Error(1)
}

type MockVPTokenCreator struct {
	mock.Mock
}

func (m *MockVPTokenCreator) Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (string, error) {
	args := m.Called(ctx, authorize)
	return args.String(0), args.Error(1)
}
