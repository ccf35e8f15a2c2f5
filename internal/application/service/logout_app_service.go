package service

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	domainService "github.com/turtacn/oidc-core/internal/domain/service"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// LogoutOrchestrator is implemented by domainService.LogoutOrchestrator.
type LogoutOrchestrator interface {
	Logout(ctx context.Context, tenantID, opSessionID string) (*models.LogoutResult, error)
}

// LogoutTokenConsumer is implemented by domainService.LogoutTokenValidator.
type LogoutTokenConsumer interface {
	ValidateAndConsume(ctx context.Context, raw, expectedIssuer, expectedAudience, jwks string) models.LogoutTokenValidation
}

// LogoutAppService ends single-sign-on sessions and accepts logout tokens from an upstream provider.
type LogoutAppService struct {
	orchestrator LogoutOrchestrator
	tokens       LogoutTokenConsumer
	servers      repository.ServerConfigurationRepository
	upstream     repository.UpstreamSessionRepository
	audit        domainService.AuditService
	metrics      domainService.Metrics
	tracer       trace.Tracer
	logger       logger.Logger
}

// NewLogoutAppService creates a new LogoutAppService. audit and metrics may be nil.
func NewLogoutAppService(
	orchestrator LogoutOrchestrator,
	tokens LogoutTokenConsumer,
	servers repository.ServerConfigurationRepository,
	upstream repository.UpstreamSessionRepository,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
) *LogoutAppService {
	return &LogoutAppService{
		orchestrator: orchestrator,
		tokens:       tokens,
		servers:      servers,
		upstream:     upstream,
		audit:        audit,
		metrics:      metrics,
		tracer:       otel.Tracer(constants.ServiceName),
		logger:       log.WithComponent("LogoutAppService"),
	}
}

// Logout terminates the OP session and notifies every client bound to it.
func (s *LogoutAppService) Logout(ctx context.Context, tenantID, opSessionID string) (*dto.LogoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "LogoutAppService.Logout", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
	))
	defer span.End()

	result, err := s.orchestrator.Logout(ctx, tenantID, opSessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.IsNotFoundError(err) {
			s.logger.Warn(ctx, "logout for unknown tenant", logger.String("tenant_id", tenantID))
			return nil, errors.ErrInvalidRequest("tenant is not configured").WithCause(err)
		}
		s.logger.Error(ctx, "logout failed", err,
			logger.String("tenant_id", tenantID),
			logger.String("op_session_id", opSessionID))
		return nil, errors.WrapError(err, constants.ErrCodeServerError, "logout failed")
	}

	s.observeResult(ctx, result)
	span.SetAttributes(
		attribute.Int("back_channel", len(result.Notifications)),
		attribute.Int("front_channel", len(result.FrontChannel)),
	)
	span.SetStatus(codes.Ok, "")
	return dto.NewLogoutResponse(result), nil
}

func (s *LogoutAppService) observeResult(ctx context.Context, result *models.LogoutResult) {
	for _, n := range result.Notifications {
		if s.metrics != nil {
			s.metrics.RecordLogoutNotification(result.TenantID, string(n.Channel), string(n.Status))
			if n.CompletedAt != nil {
				s.metrics.RecordBackChannelLatency(result.TenantID, n.CompletedAt.Sub(n.CreatedAt))
			}
		}
		outcome := "success"
		if !n.IsSuccess() {
			outcome = string(n.Status)
		}
		s.publish(ctx, models.NewAuditEvent(result.TenantID, constants.AuditEventLogoutNotification, outcome, n.LogoutURI).
			WithClient(n.ClientID, n.Subject))
	}

	for _, d := range result.FrontChannel {
		if s.metrics != nil {
			s.metrics.RecordLogoutNotification(result.TenantID, string(constants.LogoutChannelFront), string(constants.LogoutStatusPending))
		}
		s.publish(ctx, models.NewAuditEvent(result.TenantID, constants.AuditEventLogoutNotification, "rendered", d.LogoutURI).
			WithClient(d.ClientID, result.Subject))
	}

	if result.HasFailures() {
		s.logger.Warn(ctx, "some back-channel logout notifications failed",
			logger.String("tenant_id", result.TenantID),
			logger.Int("retryable", len(result.Retryable())))
	}
}

// ReceiveBackChannelLogout validates a logout token POSTed by the tenant's upstream provider and,
// when its sid is bound to a local OP session, logs that session out.
func (s *LogoutAppService) ReceiveBackChannelLogout(ctx context.Context, tenantID, logoutToken string) *dto.BackChannelLogoutResult {
	ctx, span := s.tracer.Start(ctx, "LogoutAppService.ReceiveBackChannelLogout", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
	))
	defer span.End()

	server, err := s.servers.Get(ctx, tenantID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return rejected(constants.ErrCodeInvalidRequest, "tenant is not configured")
		}
		s.logger.Error(ctx, "failed to load server configuration", err, logger.String("tenant_id", tenantID))
		return &dto.BackChannelLogoutResult{
			StatusCode:       http.StatusInternalServerError,
			Error:            string(constants.ErrCodeServerError),
			ErrorDescription: genericServerErrorDescription,
		}
	}
	if server.Upstream == nil {
		return rejected(constants.ErrCodeInvalidRequest, "tenant does not accept back-channel logout")
	}

	upstream := server.Upstream
	validation := s.tokens.ValidateAndConsume(ctx, logoutToken, upstream.Issuer, upstream.ClientID, upstream.JWKS)
	if s.metrics != nil {
		s.metrics.RecordLogoutTokenValidation(validationLabel(validation))
	}

	if !validation.Valid {
		span.SetStatus(codes.Error, validation.ErrorCode)
		s.logger.Warn(ctx, "logout token rejected",
			logger.String("tenant_id", tenantID),
			logger.String("error", validation.ErrorCode),
			logger.String("error_description", validation.ErrorDescription))
		s.publish(ctx, models.NewAuditEvent(tenantID, constants.AuditEventLogoutTokenReceived, "rejected", validation.ErrorCode).
			WithClient(upstream.ClientID, ""))
		return &dto.BackChannelLogoutResult{
			StatusCode:       http.StatusBadRequest,
			Error:            validation.ErrorCode,
			ErrorDescription: validation.ErrorDescription,
		}
	}

	token := validation.Token
	s.publish(ctx, models.NewAuditEvent(tenantID, constants.AuditEventLogoutTokenReceived, "accepted", token.JTI).
		WithClient(upstream.ClientID, token.Subject))

	result := &dto.BackChannelLogoutResult{
		StatusCode: http.StatusOK,
		Subject:    token.Subject,
		SessionID:  token.SessionID,
	}
	if token.SessionID == "" {
		s.logger.Info(ctx, "logout token without sid accepted", logger.String("tenant_id", tenantID))
		span.SetStatus(codes.Ok, "")
		return result
	}

	opSessionID, err := s.upstream.Resolve(ctx, tenantID, token.SessionID)
	if err != nil {
		s.logger.Warn(ctx, "upstream session lookup failed",
			logger.String("tenant_id", tenantID), logger.Err(err))
		span.SetStatus(codes.Ok, "")
		return result
	}
	if opSessionID == "" {
		s.logger.Info(ctx, "no local session is bound to the upstream session", logger.String("tenant_id", tenantID))
		span.SetStatus(codes.Ok, "")
		return result
	}

	logout, err := s.Logout(ctx, tenantID, opSessionID)
	if err != nil {
		// The token is consumed; a local failure must not make the provider retry it.
		s.logger.Warn(ctx, "local logout after upstream logout token failed",
			logger.String("tenant_id", tenantID), logger.Err(err))
		span.SetStatus(codes.Ok, "")
		return result
	}
	result.Logout = logout
	span.SetStatus(codes.Ok, "")
	return result
}

func (s *LogoutAppService) publish(ctx context.Context, event models.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to write audit event",
			logger.String("event_type", string(event.EventType)),
			logger.Err(err))
	}
}

func rejected(code constants.ErrorCode, description string) *dto.BackChannelLogoutResult {
	return &dto.BackChannelLogoutResult{
		StatusCode:       http.StatusBadRequest,
		Error:            string(code),
		ErrorDescription: description,
	}
}

func validationLabel(v models.LogoutTokenValidation) string {
	if v.Valid {
		return "valid"
	}
	return v.ErrorCode
}
