package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
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

type orchestratorDeps struct {
	servers       *mocks.MockServerConfigurationRepository
	clients       *mocks.MockClientConfigurationRepository
	opSessions    *mocks.MockOPSessionRepository
	sessions      *mocks.MockOAuthSessionRepository
	notifications *mocks.MockLogoutNotificationRepository
	jtis          *mocks.MockJTIRepository
	jose          *mocks.MockJoseHandler
	sender        *mocks.MockBackChannelLogoutSender

	mu      sync.Mutex
	updated []models.LogoutNotification
}

func newTestOrchestrator() (*LogoutOrchestrator, *orchestratorDeps) {
	deps := &orchestratorDeps{
		servers:       new(mocks.MockServerConfigurationRepository),
		clients:       new(mocks.MockClientConfigurationRepository),
		opSessions:    new(mocks.MockOPSessionRepository),
		sessions:      new(mocks.MockOAuthSessionRepository),
		notifications: new(mocks.MockLogoutNotificationRepository),
		jtis:          new(mocks.MockJTIRepository),
		jose:          new(mocks.MockJoseHandler),
		sender:        new(mocks.MockBackChannelLogoutSender),
	}
	o := NewLogoutOrchestrator(deps.servers, deps.clients, deps.opSessions, deps.sessions, deps.notifications,
		deps.jtis, deps.jose, deps.sender, LogoutOrchestratorConfig{BackChannelTimeout: 50 * time.Millisecond}, testLogger)
	o.now = fixedClock

	deps.servers.On("Get", mock.Anything, testTenant).Return(newTestServer(), nil)
	deps.notifications.On("Save", mock.Anything, mock.Anything).Return(nil)
	deps.notifications.On("Update", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			deps.mu.Lock()
			defer deps.mu.Unlock()
			deps.updated = append(deps.updated, args.Get(1).(models.LogoutNotification))
		}).
		Return(nil)
	deps.jose.On("Sign", mock.Anything, mock.Anything, mock.Anything, constants.LogoutTokenType).Return("logout.jwt", nil)
	return o, deps
}

func clientWith(id string, mutate func(c *models.ClientConfiguration)) *models.ClientConfiguration {
	c := newTestClient()
	c.ClientID = id
	mutate(c)
	return c
}

func TestLogout_NotifiesEveryClient(t *testing.T) {
	o, deps := newTestOrchestrator()
	op := &models.OPSession{
		ID:       "op-1",
		TenantID: testTenant,
		Subject:  "user-1",
		ClientSessions: []models.ClientSession{
			{ClientID: "back-ok", SessionID: "sid-a", Subject: "user-1"},
			{ClientID: "back-slow", SessionID: "sid-b", Subject: "user-1"},
			{ClientID: "back-503", SessionID: "sid-c", Subject: "user-1"},
			{ClientID: "front", SessionID: "sid-d", Subject: "user-1"},
			{ClientID: "removed", SessionID: "sid-e", Subject: "user-1"},
		},
	}
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "op-1").Return(op, nil).Once()

	deps.clients.On("Get", mock.Anything, testTenant, "back-ok").Return(clientWith("back-ok", func(c *models.ClientConfiguration) {
		c.BackchannelLogoutURI = "https://ok.example.com/logout"
		c.FrontchannelLogoutURI = "https://ok.example.com/front"
	}), nil)
	deps.clients.On("Get", mock.Anything, testTenant, "back-slow").Return(clientWith("back-slow", func(c *models.ClientConfiguration) {
		c.BackchannelLogoutURI = "https://slow.example.com/logout"
	}), nil)
	deps.clients.On("Get", mock.Anything, testTenant, "back-503").Return(clientWith("back-503", func(c *models.ClientConfiguration) {
		c.BackchannelLogoutURI = "https://broken.example.com/logout"
	}), nil)
	deps.clients.On("Get", mock.Anything, testTenant, "front").Return(clientWith("front", func(c *models.ClientConfiguration) {
		c.FrontchannelLogoutURI = "https://front.example.com/logout"
		c.FrontchannelLogoutSessionRequired = true
	}), nil)
	deps.clients.On("Get", mock.Anything, testTenant, "removed").Return(nil, errors.ErrConfigurationNotFound("client", "removed"))

	stored := models.NewOAuthSession(models.OAuthSessionKey{Issuer: testIssuer, ClientID: "back-ok"},
		"sid-a", "op-1", newTestUser(), newTestAuthentication(), time.Hour, fixedNow)
	deps.sessions.On("Find", mock.Anything, models.OAuthSessionKey{Issuer: testIssuer, ClientID: "back-ok"}).Return(&stored, nil)
	deps.sessions.On("Find", mock.Anything, mock.Anything).Return(nil, nil)
	deps.sessions.On("Update", mock.Anything, mock.MatchedBy(func(s models.OAuthSession) bool {
		return s.SessionID == "sid-a" && s.Deleted
	})).Return(nil).Once()

	deps.sender.On("Send", mock.Anything, "https://ok.example.com/logout", "logout.jwt", 50*time.Millisecond).
		Return(&models.BackChannelResponse{StatusCode: 200}, nil)
	deps.sender.On("Send", mock.Anything, "https://slow.example.com/logout", "logout.jwt", mock.Anything).
		Return(nil, fmt.Errorf("post: %w", context.DeadlineExceeded))
	deps.sender.On("Send", mock.Anything, "https://broken.example.com/logout", "logout.jwt", mock.Anything).
		Return(&models.BackChannelResponse{StatusCode: 503, Body: "unavailable"}, nil)
	deps.jtis.On("MarkUsed", mock.Anything, mock.Anything, constants.LogoutTokenJTITTL).Return(true, nil).Once()

	result, err := o.Logout(context.Background(), testTenant, "op-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", result.Subject)
	require.Len(t, result.Notifications, 4)
	byClient := map[string]models.LogoutNotification{}
	for _, n := range result.Notifications {
		byClient[n.ClientID] = n
	}
	assert.Equal(t, constants.LogoutStatusSuccess, byClient["back-ok"].Status)
	assert.Equal(t, constants.LogoutStatusTimeout, byClient["back-slow"].Status)
	assert.True(t, byClient["back-slow"].ShouldRetry())
	assert.Equal(t, constants.LogoutStatusFailed, byClient["back-503"].Status)
	assert.Equal(t, 503, byClient["back-503"].HTTPStatusCode)
	assert.True(t, byClient["back-503"].ShouldRetry())
	assert.Equal(t, constants.LogoutStatusFailed, byClient["removed"].Status)
	assert.Equal(t, "sid-e", byClient["removed"].SessionID)
	assert.False(t, byClient["removed"].ShouldRetry())
	assert.True(t, result.HasFailures())

	require.Len(t, result.FrontChannel, 1)
	assert.Equal(t, "front", result.FrontChannel[0].ClientID)
	assert.Equal(t, "https://front.example.com/logout?iss=https%3A%2F%2Fop.example.com%2Ftenant-a&sid=sid-d", result.FrontChannel[0].URL())

	assert.Len(t, deps.updated, 3, "each notification reaches a terminal state exactly once")
	for _, n := range deps.updated {
		assert.NotNil(t, n.CompletedAt)
	}
	deps.sessions.AssertExpectations(t)
	deps.jtis.AssertExpectations(t)
}

func TestLogout_LogoutTokenClaims(t *testing.T) {
	o, deps := newTestOrchestrator()
	deps.jose.ExpectedCalls = nil
	var claims map[string]interface{}
	deps.jose.On("Sign", mock.Anything, mock.Anything, mock.Anything, constants.LogoutTokenType).
		Run(func(args mock.Arguments) { claims = args.Get(2).(map[string]interface{}) }).
		Return("logout.jwt", nil)

	op := &models.OPSession{ID: "op-1", TenantID: testTenant, Subject: "user-1",
		ClientSessions: []models.ClientSession{{ClientID: testClientID, SessionID: "sid-a", Subject: "user-1"}}}
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "op-1").Return(op, nil)
	deps.clients.On("Get", mock.Anything, testTenant, testClientID).Return(clientWith(testClientID, func(c *models.ClientConfiguration) {
		c.BackchannelLogoutURI = "https://rp.example.com/logout"
	}), nil)
	deps.sessions.On("Find", mock.Anything, mock.Anything).Return(nil, nil)
	deps.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&models.BackChannelResponse{StatusCode: 204}, nil)
	deps.jtis.On("MarkUsed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	_, err := o.Logout(context.Background(), testTenant, "op-1")
	require.NoError(t, err)

	token, err := models.LogoutTokenFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, testIssuer, token.Issuer)
	assert.Equal(t, testClientID, token.Audience)
	assert.Equal(t, "user-1", token.Subject)
	assert.Equal(t, "sid-a", token.SessionID)
	assert.True(t, token.HasBackChannelLogoutEvent())
	assert.NotEmpty(t, token.JTI)
	assert.NotContains(t, claims, "nonce")
}

func TestLogout_UnknownSessionIsEmpty(t *testing.T) {
	o, deps := newTestOrchestrator()
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "gone").Return(nil, nil)

	result, err := o.Logout(context.Background(), testTenant, "gone")

	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	deps.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_TerminateFailure(t *testing.T) {
	o, deps := newTestOrchestrator()
	boom := stderrors.New("redis down")
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "op-1").Return(nil, boom)

	_, err := o.Logout(context.Background(), testTenant, "op-1")

	assert.ErrorIs(t, err, boom)
	deps.clients.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_SigningFailureIsRecorded(t *testing.T) {
	o, deps := newTestOrchestrator()
	deps.jose.ExpectedCalls = nil
	deps.jose.On("Sign", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", stderrors.New("no key"))

	op := &models.OPSession{ID: "op-1", TenantID: testTenant,
		ClientSessions: []models.ClientSession{{ClientID: testClientID, SessionID: "sid-a", Subject: "user-1"}}}
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "op-1").Return(op, nil)
	deps.clients.On("Get", mock.Anything, testTenant, testClientID).Return(clientWith(testClientID, func(c *models.ClientConfiguration) {
		c.BackchannelLogoutURI = "https://rp.example.com/logout"
	}), nil)
	deps.sessions.On("Find", mock.Anything, mock.Anything).Return(nil, nil)

	result, err := o.Logout(context.Background(), testTenant, "op-1")

	require.NoError(t, err)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, constants.LogoutStatusFailed, result.Notifications[0].Status)
	deps.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_TerminatesBeforeLoadingTenant(t *testing.T) {
	o, deps := newTestOrchestrator()
	deps.servers.ExpectedCalls = nil
	unavailable := stderrors.New("configuration store down")
	deps.servers.On("Get", mock.Anything, testTenant).Return(nil, unavailable)

	op := &models.OPSession{ID: "op-1", TenantID: testTenant, Subject: "user-1",
		ClientSessions: []models.ClientSession{{ClientID: testClientID, SessionID: "sid-a", Subject: "user-1"}}}
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "op-1").Return(op, nil).Once()

	_, err := o.Logout(context.Background(), testTenant, "op-1")

	assert.ErrorIs(t, err, unavailable)
	deps.opSessions.AssertExpectations(t)
	deps.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_UnresolvableClientLosesItsSession(t *testing.T) {
	o, deps := newTestOrchestrator()
	op := &models.OPSession{ID: "op-1", TenantID: testTenant, Subject: "user-1",
		ClientSessions: []models.ClientSession{{ClientID: "deleted-client", SessionID: "sid-x", Subject: "user-1"}}}
	deps.opSessions.On("Terminate", mock.Anything, testTenant, "op-1").Return(op, nil)
	deps.clients.On("Get", mock.Anything, testTenant, "deleted-client").
		Return(nil, errors.ErrConfigurationNotFound("client", "deleted-client"))

	key := models.OAuthSessionKey{Issuer: testIssuer, ClientID: "deleted-client"}
	stored := models.NewOAuthSession(key, "sid-x", "op-1", newTestUser(), newTestAuthentication(), time.Hour, fixedNow)
	deps.sessions.On("Find", mock.Anything, key).Return(&stored, nil)
	deps.sessions.On("Update", mock.Anything, mock.MatchedBy(func(s models.OAuthSession) bool {
		return s.SessionID == "sid-x" && s.Deleted
	})).Return(nil).Once()

	var saved []models.LogoutNotification
	deps.notifications.ExpectedCalls = nil
	deps.notifications.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(models.LogoutNotification)) }).
		Return(nil)

	result, err := o.Logout(context.Background(), testTenant, "op-1")

	require.NoError(t, err)
	require.Len(t, result.Notifications, 1)
	n := result.Notifications[0]
	assert.Equal(t, "deleted-client", n.ClientID)
	assert.Equal(t, constants.LogoutStatusFailed, n.Status)
	assert.NotNil(t, n.CompletedAt)
	require.Len(t, saved, 1)
	assert.Equal(t, n.ID, saved[0].ID)
	deps.sessions.AssertExpectations(t)
	deps.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
