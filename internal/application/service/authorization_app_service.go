// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
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

const genericServerErrorDescription = "An unexpected error occurred"

// RequestResolver is implemented by domainService.RequestResolver.
type RequestResolver interface {
	Resolve(ctx context.Context, tenantID string, params models.RequestParameters) (*models.OAuthRequestContext, error)
}

// RequestVerifier is implemented by domainService.RequestVerifier.
type RequestVerifier interface {
	Verify(ctx context.Context, reqCtx *models.OAuthRequestContext) (*models.OAuthRequestContext, error)
}

// AutoAuthorizer is implemented by domainService.AutoAuthorizationEvaluator.
type AutoAuthorizer interface {
	CanAutomaticallyAuthorize(ctx context.Context, reqCtx *models.OAuthRequestContext) (*models.AuthorizationContext, bool, error)
}

// ResponseCreator is implemented by domainService.ResponseCreator.
type ResponseCreator interface {
	Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*models.AuthorizationResponse, error)
}

// ErrorResponseCreator is implemented by domainService.ErrorResponseCreator.
type ErrorResponseCreator interface {
	FromRedirectableError(ctx context.Context, rbr *domainService.OAuthRedirectableBadRequest) (*models.AuthorizationErrorResponse, error)
	FromDenyReason(ctx context.Context, reqCtx *models.OAuthRequestContext, reason models.DenyReason) (*models.AuthorizationErrorResponse, error)
}

// AuthorizationDependencies groups the collaborators of AuthorizationAppService.
type AuthorizationDependencies struct {
	Resolver       RequestResolver
	Verifier       RequestVerifier
	Evaluator      AutoAuthorizer
	Responses      ResponseCreator
	ErrorResponses ErrorResponseCreator

	Servers    repository.ServerConfigurationRepository
	Clients    repository.ClientConfigurationRepository
	Requests   repository.AuthorizationRequestRepository
	Codes      repository.AuthorizationCodeGrantRepository
	Tokens     repository.AuthorizedTokenRepository
	Granted    repository.AuthorizationGrantedRepository
	Sessions   repository.OAuthSessionRepository
	OPSessions repository.OPSessionRepository

	// UpstreamSessions is required only for tenants that federate to an upstream provider.
	UpstreamSessions repository.UpstreamSessionRepository

	Audit   domainService.AuditService
	Metrics domainService.Metrics
}

// AuthorizationAppService drives the authorization endpoint: the initial request, the
// interactive authorize and deny decisions, and the prompt=none shortcut.
type AuthorizationAppService struct {
	deps   AuthorizationDependencies
	tracer trace.Tracer
	logger logger.Logger
	now    func() time.Time
}

// NewAuthorizationAppService creates a new AuthorizationAppService.
func NewAuthorizationAppService(deps AuthorizationDependencies, log logger.Logger) *AuthorizationAppService {
	return &AuthorizationAppService{
		deps:   deps,
		tracer: otel.Tracer(constants.ServiceName),
		logger: log.WithComponent("AuthorizationAppService"),
		now:    time.Now,
	}
}

// Request resolves, verifies and registers an authorization request. A prompt=none request
// that the existing session and grant already cover is answered immediately.
func (s *AuthorizationAppService) Request(ctx context.Context, tenantID string, params models.RequestParameters) *dto.AuthorizationRequestResult {
	responseType := string(models.ParseResponseType(params.Get("response_type")))
	return s.observe(ctx, "AuthorizationAppService.Request", tenantID, params.Get("client_id"), responseType,
		func(ctx context.Context) *dto.AuthorizationRequestResult {
			return s.request(ctx, tenantID, params)
		})
}

func (s *AuthorizationAppService) request(ctx context.Context, tenantID string, params models.RequestParameters) *dto.AuthorizationRequestResult {
	reqCtx, err := s.deps.Resolver.Resolve(ctx, tenantID, params)
	if err != nil {
		return s.fail(ctx, tenantID, err)
	}
	reqCtx, err = s.deps.Verifier.Verify(ctx, reqCtx)
	if err != nil {
		return s.fail(ctx, tenantID, err)
	}

	if err := s.deps.Requests.Register(ctx, reqCtx.Request); err != nil {
		return s.serverError(ctx, tenantID, err)
	}

	authz, ok, err := s.deps.Evaluator.CanAutomaticallyAuthorize(ctx, reqCtx)
	if err != nil {
		return s.fail(ctx, tenantID, err)
	}
	if !ok {
		s.logger.Info(ctx, "authorization request registered",
			logger.String("tenant_id", tenantID),
			logger.String("client_id", reqCtx.ClientID()),
			logger.String("authorization_request_id", reqCtx.Request.ID))
		return dto.NewInteractionRequired(reqCtx)
	}

	session := authz.Session
	result, err := s.issue(ctx, &models.OAuthAuthorizeContext{
		RequestContext: reqCtx,
		User:           session.User,
		Authentication: session.Authentication,
		SessionID:      session.SessionID,
		Now:            authz.Now,
	})
	if err != nil {
		return s.fail(ctx, tenantID, err)
	}
	result.Status = dto.AuthorizationStatusAutoAuthorized
	result.OPSessionID = session.OPSessionID
	return result
}

// Authorize completes a registered request after the user authenticated and consented.
func (s *AuthorizationAppService) Authorize(ctx context.Context, tenantID, requestID string, req *dto.AuthorizeRequest) *dto.AuthorizationRequestResult {
	return s.observe(ctx, "AuthorizationAppService.Authorize", tenantID, "", "",
		func(ctx context.Context) *dto.AuthorizationRequestResult {
			return s.authorize(ctx, tenantID, requestID, req)
		})
}

func (s *AuthorizationAppService) authorize(ctx context.Context, tenantID, requestID string, req *dto.AuthorizeRequest) *dto.AuthorizationRequestResult {
	now := s.now()
	reqCtx, failed := s.loadRequest(ctx, tenantID, requestID, now)
	if failed != nil {
		return failed
	}

	user := req.ToUser()
	authentication := req.ToAuthentication(now)

	session, failed := s.bindSession(ctx, reqCtx, user, authentication, req.OPSessionID, now)
	if failed != nil {
		return failed
	}
	if req.UpstreamSessionID != "" {
		if failed := s.bindUpstream(ctx, reqCtx, req.UpstreamSessionID, session); failed != nil {
			return failed
		}
	}

	result, err := s.issue(ctx, &models.OAuthAuthorizeContext{
		RequestContext: reqCtx,
		User:           user,
		Authentication: authentication,
		SessionID:      session.SessionID,
		Now:            now,
	})
	if err != nil {
		return s.fail(ctx, tenantID, err)
	}

	if err := s.recordGranted(ctx, reqCtx, user.Subject, req.ToConsent(now), now); err != nil {
		return s.serverError(ctx, tenantID, err)
	}

	result.Status = dto.AuthorizationStatusAuthorized
	result.OPSessionID = session.OPSessionID
	return result
}

// Deny answers a registered request with an error response carrying reason.
func (s *AuthorizationAppService) Deny(ctx context.Context, tenantID, requestID, reason string) *dto.AuthorizationRequestResult {
	return s.observe(ctx, "AuthorizationAppService.Deny", tenantID, "", "",
		func(ctx context.Context) *dto.AuthorizationRequestResult {
			return s.deny(ctx, tenantID, requestID, reason)
		})
}

func (s *AuthorizationAppService) deny(ctx context.Context, tenantID, requestID, rawReason string) *dto.AuthorizationRequestResult {
	reason, ok := models.ParseDenyReason(rawReason)
	if !ok {
		return dto.NewErrorResult(dto.AuthorizationStatusBadRequest,
			string(constants.ErrCodeInvalidRequest), "deny reason ("+rawReason+") is not supported")
	}

	reqCtx, failed := s.loadRequest(ctx, tenantID, requestID, s.now())
	if failed != nil {
		return failed
	}

	resp, err := s.deps.ErrorResponses.FromDenyReason(ctx, reqCtx, reason)
	if err != nil {
		return s.serverError(ctx, tenantID, err)
	}

	s.audit(ctx, models.NewAuditEvent(tenantID, constants.AuditEventAuthorizationDenied, "denied", string(reason)).
		WithClient(reqCtx.ClientID(), ""))
	s.logger.Info(ctx, "authorization request denied",
		logger.String("client_id", reqCtx.ClientID()),
		logger.String("reason", string(reason)))

	return &dto.AuthorizationRequestResult{
		Status:                 dto.AuthorizationStatusDenied,
		AuthorizationRequestID: requestID,
		TenantID:               tenantID,
		ClientID:               reqCtx.ClientID(),
		RedirectURI:            resp.RedirectURIValue(),
		Error:                  resp.ErrorCode(),
		ErrorDescription:       resp.ErrorDescription(),
	}
}

// loadRequest consumes a registered request and rebuilds its request context. A request is
// completed at most once, whatever the outcome.
func (s *AuthorizationAppService) loadRequest(ctx context.Context, tenantID, requestID string, now time.Time) (*models.OAuthRequestContext, *dto.AuthorizationRequestResult) {
	request, err := s.deps.Requests.Consume(ctx, tenantID, requestID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, dto.NewErrorResult(dto.AuthorizationStatusBadRequest,
				string(constants.ErrCodeInvalidRequest), "authorization request is not found")
		}
		return nil, s.serverError(ctx, tenantID, err)
	}
	if request.IsExpired(now) {
		return nil, dto.NewErrorResult(dto.AuthorizationStatusBadRequest,
			string(constants.ErrCodeInvalidRequest), "authorization request has expired")
	}

	server, err := s.deps.Servers.Get(ctx, tenantID)
	if err != nil {
		return nil, s.configurationError(ctx, tenantID, err)
	}
	client, err := s.deps.Clients.Get(ctx, tenantID, request.ClientID)
	if err != nil {
		return nil, s.configurationError(ctx, tenantID, err)
	}

	return &models.OAuthRequestContext{Request: request, Server: server, Client: client}, nil
}

// bindSession refreshes or creates the client session and registers it under the OP session.
func (s *AuthorizationAppService) bindSession(ctx context.Context, reqCtx *models.OAuthRequestContext, user models.User, authentication models.Authentication, opSessionID string, now time.Time) (models.OAuthSession, *dto.AuthorizationRequestResult) {
	tenantID := reqCtx.TenantID()
	lifetime := reqCtx.Server.OAuthSessionLifetime()

	existing, err := s.deps.Sessions.Find(ctx, reqCtx.SessionKey())
	if err != nil {
		return models.OAuthSession{}, s.serverError(ctx, tenantID, err)
	}
	reuse := existing != nil && existing.Exists() && !existing.Deleted && existing.User.Subject == user.Subject
	if opSessionID == "" && reuse {
		opSessionID = existing.OPSessionID
	}
	if opSessionID == "" {
		opSessionID = uuid.NewString()
	}

	opSession, err := s.deps.OPSessions.Find(ctx, tenantID, opSessionID)
	if err != nil {
		return models.OAuthSession{}, s.serverError(ctx, tenantID, err)
	}
	if opSession != nil && opSession.Subject != user.Subject {
		s.logger.Warn(ctx, "op session belongs to another subject",
			logger.String("op_session_id", opSessionID))
		return models.OAuthSession{}, dto.NewErrorResult(dto.AuthorizationStatusBadRequest,
			string(constants.ErrCodeInvalidRequest), "op session does not belong to the authenticated user")
	}

	var session models.OAuthSession
	if reuse {
		session = existing.DidAuthentication(user, authentication, now)
		session.OPSessionID = opSessionID
		err = s.deps.Sessions.Update(ctx, session)
	} else {
		session = models.NewOAuthSession(reqCtx.SessionKey(), uuid.NewString(), opSessionID, user, authentication, lifetime, now)
		err = s.deps.Sessions.Register(ctx, session)
	}
	if err != nil {
		return models.OAuthSession{}, s.serverError(ctx, tenantID, err)
	}

	cs := models.ClientSession{ClientID: reqCtx.ClientID(), SessionID: session.SessionID, Subject: user.Subject}
	if opSession != nil {
		err = s.deps.OPSessions.AddClientSession(ctx, tenantID, opSessionID, cs, session.ExpiresAt)
		if errors.IsNotFoundError(err) {
			s.logger.Debug(ctx, "op session expired while binding, starting it again",
				logger.String("op_session_id", opSessionID))
			opSession = nil
		}
	}
	if opSession == nil {
		err = s.deps.OPSessions.Register(ctx, models.OPSession{
			ID:             opSessionID,
			TenantID:       tenantID,
			Subject:        user.Subject,
			ClientSessions: []models.ClientSession{cs},
			CreatedAt:      now,
			ExpiresAt:      session.ExpiresAt,
		})
	}
	if err != nil {
		return models.OAuthSession{}, s.serverError(ctx, tenantID, err)
	}
	return session, nil
}

// bindUpstream remembers which OP session the upstream session authenticated.
func (s *AuthorizationAppService) bindUpstream(ctx context.Context, reqCtx *models.OAuthRequestContext, upstreamSessionID string, session models.OAuthSession) *dto.AuthorizationRequestResult {
	tenantID := reqCtx.TenantID()
	if reqCtx.Server.Upstream == nil || s.deps.UpstreamSessions == nil {
		return dto.NewErrorResult(dto.AuthorizationStatusBadRequest,
			string(constants.ErrCodeInvalidRequest), "tenant does not federate to an upstream provider")
	}
	if err := s.deps.UpstreamSessions.Bind(ctx, tenantID, upstreamSessionID, session.OPSessionID, session.ExpiresAt); err != nil {
		return s.serverError(ctx, tenantID, err)
	}
	s.logger.Debug(ctx, "upstream session bound",
		logger.String("tenant_id", tenantID),
		logger.String("op_session_id", session.OPSessionID))
	return nil
}

// issue builds the response and registers the authorization code and access token it carries.
func (s *AuthorizationAppService) issue(ctx context.Context, authorize *models.OAuthAuthorizeContext) (*dto.AuthorizationRequestResult, error) {
	resp, err := s.deps.Responses.Create(ctx, authorize)
	if err != nil {
		return nil, err
	}

	reqCtx := authorize.RequestContext
	request := reqCtx.Request
	now := authorize.Now

	if resp.HasCode() {
		grant := &models.AuthorizationCodeGrant{
			Code:                   resp.Code(),
			AuthorizationRequestID: request.ID,
			TenantID:               reqCtx.TenantID(),
			ClientID:               reqCtx.ClientID(),
			User:                   authorize.User,
			Authentication:         authorize.Authentication,
			Scopes:                 request.Scopes,
			Claims:                 request.Claims,
			AuthorizationDetails:   request.AuthorizationDetails,
			RedirectURI:            request.RedirectURI,
			Nonce:                  request.Nonce,
			CodeChallenge:          request.CodeChallenge,
			CodeChallengeMethod:    request.CodeChallengeMethod,
			SessionID:              authorize.SessionID,
			CreatedAt:              now,
			ExpiresAt:              now.Add(reqCtx.Server.AuthorizationCodeLifetime()),
		}
		if err := s.deps.Codes.Register(ctx, grant); err != nil {
			return nil, err
		}
	}

	if resp.HasAccessToken() {
		token := resp.IssuedAccessToken()
		if err := s.deps.Tokens.Register(ctx, &models.AuthorizedToken{
			TenantID:               reqCtx.TenantID(),
			ClientID:               reqCtx.ClientID(),
			Subject:                authorize.User.Subject,
			AuthorizationRequestID: request.ID,
			TokenJTI:               token.JTI,
			TokenType:              token.TokenType,
			Scopes:                 token.Scopes,
			IssuedAt:               token.IssuedAt,
			ExpiresAt:              token.ExpiresAt,
		}); err != nil {
			if resp.HasCode() {
				s.revokeCode(ctx, reqCtx.TenantID(), resp.Code())
			}
			return nil, err
		}
	}

	s.audit(ctx, models.NewAuditEvent(reqCtx.TenantID(), constants.AuditEventAuthorizationIssued, "success", string(reqCtx.ResponseType())).
		WithClient(reqCtx.ClientID(), authorize.User.Subject))
	s.logger.Info(ctx, "authorization response issued",
		logger.String("client_id", reqCtx.ClientID()),
		logger.String("response_type", string(reqCtx.ResponseType())),
		logger.Bool("jarm", resp.IsJARM()))

	return &dto.AuthorizationRequestResult{
		AuthorizationRequestID: request.ID,
		TenantID:               reqCtx.TenantID(),
		ClientID:               reqCtx.ClientID(),
		RedirectURI:            resp.RedirectURIValue(),
		SessionID:              authorize.SessionID,
	}, nil
}

// revokeCode removes a code grant whose response is not delivered.
func (s *AuthorizationAppService) revokeCode(ctx context.Context, tenantID, code string) {
	if err := s.deps.Codes.Delete(ctx, tenantID, code); err != nil {
		s.logger.Error(ctx, "failed to remove undelivered authorization code", err,
			logger.String("tenant_id", tenantID))
	}
}

// recordGranted extends the user's grant to the client with what this request asked for.
func (s *AuthorizationAppService) recordGranted(ctx context.Context, reqCtx *models.OAuthRequestContext, subject string, consent models.ConsentClaims, now time.Time) error {
	request := reqCtx.Request
	granted, err := s.deps.Granted.Find(ctx, reqCtx.TenantID(), reqCtx.ClientID(), subject)
	if err != nil {
		return err
	}

	scopes := request.Scopes
	idTokenClaims := request.Claims.IDTokenClaimNames()
	userinfoClaims := request.Claims.UserInfoClaimNames()

	if granted == nil {
		next := models.AuthorizationGranted{
			TenantID:  reqCtx.TenantID(),
			ClientID:  reqCtx.ClientID(),
			Subject:   subject,
			CreatedAt: now,
		}.Merge(scopes, idTokenClaims, userinfoClaims, consent, now)
		return s.deps.Granted.Register(ctx, &next)
	}
	next := granted.Merge(scopes, idTokenClaims, userinfoClaims, consent, now)
	return s.deps.Granted.Update(ctx, &next)
}

// fail maps a domain error onto a result: redirectable errors are rendered to the client,
// bad requests are answered directly, anything else is a server error.
func (s *AuthorizationAppService) fail(ctx context.Context, tenantID string, err error) *dto.AuthorizationRequestResult {
	if rbr, ok := domainService.AsRedirectable(err); ok {
		s.logger.Warn(ctx, "authorization request rejected with redirect",
			logger.String("tenant_id", tenantID),
			logger.String("error", string(rbr.Code())),
			logger.String("error_description", rbr.Description()))

		resp, rerr := s.deps.ErrorResponses.FromRedirectableError(ctx, rbr)
		if rerr != nil {
			return s.serverError(ctx, tenantID, rerr)
		}
		result := &dto.AuthorizationRequestResult{
			Status:           dto.AuthorizationStatusRedirectableBadRequest,
			TenantID:         tenantID,
			RedirectURI:      resp.RedirectURIValue(),
			Error:            resp.ErrorCode(),
			ErrorDescription: resp.ErrorDescription(),
		}
		if rbr.Context != nil {
			result.ClientID = rbr.Context.ClientID()
		}
		return result
	}

	if br, ok := domainService.AsBadRequest(err); ok {
		s.logger.Warn(ctx, "authorization request rejected",
			logger.String("tenant_id", tenantID),
			logger.String("error", string(br.Code())),
			logger.String("error_description", br.Description()))
		return dto.NewErrorResult(dto.AuthorizationStatusBadRequest, string(br.Code()), br.Description())
	}

	return s.serverError(ctx, tenantID, err)
}

func (s *AuthorizationAppService) configurationError(ctx context.Context, tenantID string, err error) *dto.AuthorizationRequestResult {
	if errors.IsNotFoundError(err) {
		cbcErr, _ := errors.AsCBCError(err)
		return dto.NewErrorResult(dto.AuthorizationStatusBadRequest, string(constants.ErrCodeInvalidRequest), cbcErr.Description())
	}
	return s.serverError(ctx, tenantID, err)
}

func (s *AuthorizationAppService) serverError(ctx context.Context, tenantID string, err error) *dto.AuthorizationRequestResult {
	s.logger.Error(ctx, "authorization request failed", err, logger.String("tenant_id", tenantID))
	return dto.NewErrorResult(dto.AuthorizationStatusServerError,
		string(constants.ErrCodeServerError), genericServerErrorDescription)
}

func (s *AuthorizationAppService) audit(ctx context.Context, event models.AuditEvent) {
	if s.deps.Audit == nil {
		return
	}
	if err := s.deps.Audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to write audit event",
			logger.String("event_type", string(event.EventType)),
			logger.Err(err))
	}
}

// observe runs fn inside a span and records the outcome metric.
func (s *AuthorizationAppService) observe(ctx context.Context, name, tenantID, clientID, responseType string, fn func(context.Context) *dto.AuthorizationRequestResult) *dto.AuthorizationRequestResult {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("client_id", clientID),
	))
	defer span.End()

	result := fn(ctx)

	span.SetAttributes(attribute.String("status", string(result.Status)))
	switch result.Status {
	case dto.AuthorizationStatusServerError:
		span.SetStatus(codes.Error, result.ErrorDescription)
	default:
		span.SetStatus(codes.Ok, "")
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordAuthorization(tenantID, responseType, string(result.Status), s.now().Sub(start))
	}
	return result
}
