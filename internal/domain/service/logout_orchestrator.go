package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// LogoutOrchestratorConfig tunes back-channel delivery.
type LogoutOrchestratorConfig struct {
	BackChannelTimeout time.Duration
	JTITTL             time.Duration
	Concurrency        int
}

func (c LogoutOrchestratorConfig) withDefaults() LogoutOrchestratorConfig {
	if c.BackChannelTimeout <= 0 {
		c.BackChannelTimeout = constants.BackChannelLogoutTimeout
	}
	if c.JTITTL <= 0 {
		c.JTITTL = constants.LogoutTokenJTITTL
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	return c
}

// LogoutOrchestrator tears down an OP session and notifies every relying party bound to it.
type LogoutOrchestrator struct {
	servers       repository.ServerConfigurationRepository
	clients       repository.ClientConfigurationRepository
	opSessions    repository.OPSessionRepository
	sessions      repository.OAuthSessionRepository
	notifications repository.LogoutNotificationRepository
	jtis          repository.JTIRepository
	jose          JoseHandler
	sender        BackChannelLogoutSender
	cfg           LogoutOrchestratorConfig
	logger        logger.Logger
	now           func() time.Time
}

// NewLogoutOrchestrator creates a new LogoutOrchestrator.
func NewLogoutOrchestrator(
	servers repository.ServerConfigurationRepository,
	clients repository.ClientConfigurationRepository,
	opSessions repository.OPSessionRepository,
	sessions repository.OAuthSessionRepository,
	notifications repository.LogoutNotificationRepository,
	jtis repository.JTIRepository,
	jose JoseHandler,
	sender BackChannelLogoutSender,
	cfg LogoutOrchestratorConfig,
	log logger.Logger,
) *LogoutOrchestrator {
	return &LogoutOrchestrator{
		servers:       servers,
		clients:       clients,
		opSessions:    opSessions,
		sessions:      sessions,
		notifications: notifications,
		jtis:          jtis,
		jose:          jose,
		sender:        sender,
		cfg:           cfg.withDefaults(),
		logger:        log.WithComponent("LogoutOrchestrator"),
		now:           time.Now,
	}
}

type backChannelTarget struct {
	client  *models.ClientConfiguration
	session models.ClientSession
}

// Logout terminates the OP session first and unconditionally, then notifies clients:
// back-channel when a back-channel URI is registered, front-channel otherwise. Back-channel
// deliveries run concurrently; their failures are recorded on the notifications, never returned.
// A client whose configuration cannot be loaded still loses its session and is reported as a
// failed notification.
func (o *LogoutOrchestrator) Logout(ctx context.Context, tenantID, opSessionID string) (*models.LogoutResult, error) {
	op, err := o.opSessions.Terminate(ctx, tenantID, opSessionID)
	if err != nil {
		return nil, fmt.Errorf("terminate op session: %w", err)
	}
	result := &models.LogoutResult{TenantID: tenantID, OPSessionID: opSessionID}
	if op == nil || !op.HasClientSessions() {
		o.logger.Info(ctx, "op session has no client sessions",
			logger.String("tenant_id", tenantID), logger.String("op_session_id", opSessionID))
		return result, nil
	}
	result.Subject = op.Subject

	server, err := o.servers.Get(ctx, tenantID)
	if err != nil {
		o.logger.Error(ctx, "op session terminated but relying parties cannot be notified", err,
			logger.String("tenant_id", tenantID),
			logger.String("op_session_id", opSessionID),
			logger.Int("client_sessions", len(op.ClientSessions)))
		return nil, fmt.Errorf("load tenant configuration after terminating op session: %w", err)
	}

	var (
		targets    []backChannelTarget
		unresolved []models.LogoutNotification
	)
	for _, cs := range op.ClientSessions {
		o.deleteClientSession(ctx, server, cs)

		client, err := o.clients.Get(ctx, tenantID, cs.ClientID)
		if err != nil {
			o.logger.Warn(ctx, "client of op session is not available",
				logger.String("client_id", cs.ClientID), logger.Err(err))
			unresolved = append(unresolved, o.unresolvedClient(ctx, tenantID, cs))
			continue
		}

		switch {
		case client.HasBackChannelLogout():
			targets = append(targets, backChannelTarget{client: client, session: cs})
		case client.HasFrontChannelLogout():
			result.FrontChannel = append(result.FrontChannel, models.NewFrontChannelLogoutDescriptor(
				client.ClientID, client.FrontchannelLogoutURI, server.TokenIssuer, cs.SessionID, client.FrontchannelLogoutSessionRequired))
		}
	}

	notifications := make([]models.LogoutNotification, len(targets))
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Concurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			notifications[i] = o.deliver(ctx, server, target)
			return nil
		})
	}
	_ = g.Wait()
	result.Notifications = append(notifications, unresolved...)

	o.logger.Info(ctx, "logout orchestrated",
		logger.String("tenant_id", tenantID),
		logger.String("op_session_id", opSessionID),
		logger.Int("back_channel", len(notifications)),
		logger.Int("unresolved", len(unresolved)),
		logger.Int("front_channel", len(result.FrontChannel)))
	return result, nil
}

// unresolvedClient records a client that could not be notified because its configuration is gone.
func (o *LogoutOrchestrator) unresolvedClient(ctx context.Context, tenantID string, cs models.ClientSession) models.LogoutNotification {
	now := o.now()
	n := models.NewBackChannelNotification(tenantID, cs, "", "", now).
		Failed(0, "client configuration is not available", now)
	if err := o.notifications.Save(ctx, n); err != nil {
		o.logger.Warn(ctx, "logout notification could not be saved", logger.String("client_id", cs.ClientID), logger.Err(err))
	}
	return n
}

func (o *LogoutOrchestrator) deleteClientSession(ctx context.Context, server *models.ServerConfiguration, cs models.ClientSession) {
	key := models.OAuthSessionKey{Issuer: server.TokenIssuer, ClientID: cs.ClientID}
	session, err := o.sessions.Find(ctx, key)
	if err != nil {
		o.logger.Warn(ctx, "client session lookup failed", logger.String("session_key", key.String()), logger.Err(err))
		return
	}
	if session == nil || session.SessionID != cs.SessionID {
		return
	}
	if err := o.sessions.Update(ctx, session.MarkDeleted()); err != nil {
		o.logger.Warn(ctx, "client session deletion failed", logger.String("session_key", key.String()), logger.Err(err))
	}
}

// deliver sends one logout token and persists the terminal notification state exactly once.
func (o *LogoutOrchestrator) deliver(ctx context.Context, server *models.ServerConfiguration, target backChannelTarget) models.LogoutNotification {
	client, cs := target.client, target.session
	now := o.now()
	token := models.NewLogoutToken(server.TokenIssuer, client.ClientID, cs.Subject, cs.SessionID, now, constants.LogoutTokenLifetime)
	notification := models.NewBackChannelNotification(server.TenantID, cs, client.BackchannelLogoutURI, token.JTI, now)
	if err := o.notifications.Save(ctx, notification); err != nil {
		o.logger.Warn(ctx, "logout notification could not be saved", logger.String("client_id", client.ClientID), logger.Err(err))
	}

	notification = o.send(ctx, server, client, token, notification)

	if err := o.notifications.Update(ctx, notification); err != nil {
		o.logger.Warn(ctx, "logout notification could not be updated", logger.String("client_id", client.ClientID), logger.Err(err))
	}
	return notification
}

func (o *LogoutOrchestrator) send(ctx context.Context, server *models.ServerConfiguration, client *models.ClientConfiguration, token models.LogoutToken, n models.LogoutNotification) models.LogoutNotification {
	jwt, err := o.jose.Sign(ctx, server, token.ToClaimsMap(), constants.LogoutTokenType)
	if err != nil {
		o.logger.Error(ctx, "logout token signing failed", err, logger.String("client_id", client.ClientID))
		return n.Failed(0, "logout token signing failed", o.now())
	}

	resp, err := o.sender.Send(ctx, client.BackchannelLogoutURI, jwt, o.cfg.BackChannelTimeout)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			o.logger.Warn(ctx, "back-channel logout timed out",
				logger.String("client_id", client.ClientID), logger.Duration("timeout", o.cfg.BackChannelTimeout))
			return n.TimedOut(err.Error(), o.now())
		}
		o.logger.Warn(ctx, "back-channel logout failed", logger.String("client_id", client.ClientID), logger.Err(err))
		return n.Failed(0, err.Error(), o.now())
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		if _, err := o.jtis.MarkUsed(ctx, token.JTI, o.cfg.JTITTL); err != nil {
			o.logger.Warn(ctx, "logout token jti could not be recorded", logger.Err(err))
		}
		return n.Succeeded(resp.StatusCode, o.now())
	default:
		o.logger.Warn(ctx, "back-channel logout rejected",
			logger.String("client_id", client.ClientID), logger.Int("status", resp.StatusCode))
		return n.Failed(resp.StatusCode, resp.Body, o.now())
	}
}
