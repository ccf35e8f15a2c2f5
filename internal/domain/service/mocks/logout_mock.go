package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/oidc-core/internal/domain/models"
)

type MockBackChannelLogoutSender struct {
	mock.Mock
}

func (m *MockBackChannelLogoutSender) Send(ctx context.Context, uri, logoutToken string, timeout time.Duration) (*models.BackChannelResponse, error) {
	args := m.Called(ctx, uri, logoutToken, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BackChannelResponse), args.Error(1)
}

type MockLogoutNotificationRepository struct {
	mock.Mock
}

func (m *MockLogoutNotificationRepository) Save(ctx context.Context, notification models.LogoutNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockLogoutNotificationRepository) Update(ctx context.Context, notification models.LogoutNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

type MockJTIRepository struct {
	mock.Mock
}

func (m *MockJTIRepository) IsUsed(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockJTIRepository) MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, jti, ttl)
	return args.Bool(0), args.Error(1)
}
