package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// AutoAuthorizationEvaluator decides whether a prompt=none request can be answered from the
// existing client session and grant without user interaction.
type AutoAuthorizationEvaluator struct {
	sessions repository.OAuthSessionRepository
	granted  repository.AuthorizationGrantedRepository
	logger   logger.Logger
	now      func() time.Time
}

// NewAutoAuthorizationEvaluator creates a new AutoAuthorizationEvaluator.
func NewAutoAuthorizationEvaluator(sessions repository.OAuthSessionRepository, granted repository.AuthorizationGrantedRepository, log logger.Logger) *AutoAuthorizationEvaluator {
	return &AutoAuthorizationEvaluator{
		sessions: sessions,
		granted:  granted,
		logger:   log.WithComponent("AutoAuthorizationEvaluator"),
		now:      time.Now,
	}
}

// CanAutomaticallyAuthorize evaluates the request. It returns (ctx, true, nil) when a response
// can be issued, (nil, false, nil) when prompt is not none and the user must interact, and an
// *OAuthRedirectableBadRequest when prompt=none cannot be satisfied. Repository failures are
// returned unchanged.
func (e *AutoAuthorizationEvaluator) CanAutomaticallyAuthorize(ctx context.Context, reqCtx *models.OAuthRequestContext) (*models.AuthorizationContext, bool, error) {
	if !reqCtx.IsPromptNone() {
		return nil, false, nil
	}

	authz := &models.AuthorizationContext{RequestContext: reqCtx, Now: e.now()}

	session, err := e.sessions.Find(ctx, reqCtx.SessionKey())
	if err != nil {
		return nil, false, err
	}
	authz.Session = session
	if !authz.HasValidSession() {
		return nil, false, NewRedirectableBadRequest(constants.ErrCodeLoginRequired,
			"invalid session, session is not registered or expired", reqCtx)
	}

	granted, err := e.granted.Find(ctx, reqCtx.TenantID(), reqCtx.ClientID(), session.User.Subject)
	if err != nil {
		return nil, false, err
	}
	authz.Granted = granted
	if !authz.HasGranted() {
		return nil, false, NewRedirectableBadRequest(constants.ErrCodeInteractionRequired,
			"authorization granted is not found", reqCtx)
	}

	if unauthorized := authz.UnauthorizedScopes(); len(unauthorized) > 0 {
		return nil, false, NewRedirectableBadRequest(constants.ErrCodeInteractionRequired,
			fmt.Sprintf("authorization request contains unauthorized scopes (%s)", strings.Join(unauthorized, " ")), reqCtx)
	}
	if unauthorized := authz.UnauthorizedIDTokenClaims(); len(unauthorized) > 0 {
		return nil, false, NewRedirectableBadRequest(constants.ErrCodeInteractionRequired,
			fmt.Sprintf("authorization request contains unauthorized id_token claims (%s)", strings.Join(unauthorized, " ")), reqCtx)
	}
	if unauthorized := authz.UnauthorizedUserinfoClaims(); len(unauthorized) > 0 {
		return nil, false, NewRedirectableBadRequest(constants.ErrCodeInteractionRequired,
			fmt.Sprintf("authorization request contains unauthorized userinfo claims (%s)", strings.Join(unauthorized, " ")), reqCtx)
	}
	if authz.IsConsentMissing() {
		return nil, false, NewRedirectableBadRequest(constants.ErrCodeInteractionRequired,
			"consent to the client's terms of service or privacy policy is required", reqCtx)
	}

	e.logger.Debug(ctx, "prompt=none request can be authorized automatically",
		logger.String("client_id", reqCtx.ClientID()),
		logger.String("sub", session.User.Subject))
	return authz, true, nil
}
