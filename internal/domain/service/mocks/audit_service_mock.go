package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/oidc-core/internal/domain/models"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogEvent(ctx context.Context, event models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockMetrics struct {
	mock.Mock
}

// AllowAll accepts any metric call without asserting on it.
func (m *MockMetrics) AllowAll() *MockMetrics {
	m.On("RecordAuthorization", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RecordLogoutNotification", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RecordBackChannelLatency", mock.Anything, mock.Anything).Maybe()
	m.On("RecordLogoutTokenValidation", mock.Anything).Maybe()
	m.On("RecordCacheAccess", mock.Anything, mock.Anything).Maybe()
	return m
}

func (m *MockMetrics) RecordAuthorization(tenantID, responseType, status string, duration time.Duration) {
	m.Called(tenantID, responseType, status, duration)
}

func (m *MockMetrics) RecordLogoutNotification(tenantID, channel, status string) {
	m.Called(tenantID, channel, status)
}

func (m *MockMetrics) RecordBackChannelLatency(tenantID string, duration time.Duration) {
	m.Called(tenantID, duration)
}

func (m *MockMetrics) RecordLogoutTokenValidation(result string) {
	m.Called(result)
}

func (m *MockMetrics) RecordCacheAccess(cacheType string, hit bool) {
	m.Called(cacheType, hit)
}
