package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// RequestResolver turns raw authorization parameters into a tenant-scoped OAuthRequestContext.
// It recognises three delivery patterns: plain parameters, a request object passed by value
// ("request") and a request object passed by reference ("request_uri").
type RequestResolver struct {
	servers repository.ServerConfigurationRepository
	clients repository.ClientConfigurationRepository
	jose    JoseHandler
	gateway RequestObjectGateway
	logger  logger.Logger
	now     func() time.Time
}

// NewRequestResolver creates a new RequestResolver.
func NewRequestResolver(
	servers repository.ServerConfigurationRepository,
	clients repository.ClientConfigurationRepository,
	jose JoseHandler,
	gateway RequestObjectGateway,
	log logger.Logger,
) *RequestResolver {
	return &RequestResolver{
		servers: servers,
		clients: clients,
		jose:    jose,
		gateway: gateway,
		logger:  log.WithComponent("RequestResolver"),
		now:     time.Now,
	}
}

// Resolve classifies the request pattern and builds the request context.
// Failures are returned as *OAuthBadRequest carrying the partial context, except for
// infrastructure failures which are returned unchanged.
func (r *RequestResolver) Resolve(ctx context.Context, tenantID string, params models.RequestParameters) (*models.OAuthRequestContext, error) {
	server, err := r.servers.Get(ctx, tenantID)
	if err != nil {
		return nil, asBadRequest(err, nil)
	}
	reqCtx := &models.OAuthRequestContext{Pattern: constants.RequestPatternNormal, Server: server}

	clientID := params.Get("client_id")
	if clientID == "" {
		return nil, NewBadRequest(errors.ErrMissingRequiredParameter("client_id"), reqCtx)
	}
	client, err := r.clients.Get(ctx, tenantID, clientID)
	if err != nil {
		return nil, asBadRequest(err, reqCtx)
	}
	reqCtx.Client = client

	effective := params
	switch {
	case params.Has("request") && params.Has("request_uri"):
		return reqCtx, NewBadRequest(errors.ErrInvalidRequest("request and request_uri parameters must not be used together"), reqCtx)

	case params.Has("request"):
		reqCtx.Pattern = constants.RequestPatternRequestObject
		jose, err := r.parseRequestObject(ctx, params.Get("request"), reqCtx)
		if err != nil {
			return reqCtx, err
		}
		reqCtx.Jose = jose
		effective = mergeRequestObject(params, jose)

	case params.Has("request_uri"):
		reqCtx.Pattern = constants.RequestPatternRequestURI
		requestURI := params.Get("request_uri")
		if !client.IsRegisteredRequestURI(requestURI) {
			return reqCtx, NewBadRequest(errors.ErrInvalidRequestURI(fmt.Sprintf("request_uri (%s) is not registered for the client", requestURI)), reqCtx)
		}
		raw, err := r.gateway.Get(ctx, requestURI)
		if err != nil {
			r.logger.Warn(ctx, "request object fetch failed",
				logger.String("request_uri", requestURI), logger.Err(err))
			return reqCtx, NewBadRequest(errors.ErrInvalidRequestURI("request_uri could not be retrieved").WithCause(err), reqCtx)
		}
		jose, err := r.parseRequestObject(ctx, raw, reqCtx)
		if err != nil {
			return reqCtx, err
		}
		reqCtx.Jose = jose
		effective = mergeRequestObject(params, jose)
	}

	if reqCtx.Jose == nil {
		reqCtx.Jose = &models.JoseContext{}
	}

	request, err := r.buildRequest(tenantID, server, client, effective, reqCtx)
	if err != nil {
		return reqCtx, err
	}
	reqCtx.Request = request

	r.logger.Debug(ctx, "authorization request resolved",
		logger.String("tenant_id", tenantID),
		logger.String("client_id", clientID),
		logger.String("pattern", string(reqCtx.Pattern)),
		logger.String("response_type", string(request.ResponseType)))
	return reqCtx, nil
}

func (r *RequestResolver) parseRequestObject(ctx context.Context, raw string, reqCtx *models.OAuthRequestContext) (*models.JoseContext, error) {
	jose, err := r.jose.ParseRequestObject(ctx, raw, reqCtx.Server, reqCtx.Client)
	if err != nil {
		r.logger.Warn(ctx, "request object rejected",
			logger.String("client_id", reqCtx.Client.ClientID), logger.Err(err))
		return nil, NewBadRequest(errors.ErrInvalidRequest("request object is invalid").WithCause(err), reqCtx)
	}
	if cid := jose.ClaimString("client_id"); cid != "" && cid != reqCtx.Client.ClientID {
		return nil, NewBadRequest(errors.ErrInvalidRequest("client_id of the request object does not match the client_id parameter"), reqCtx)
	}
	return jose, nil
}

func (r *RequestResolver) buildRequest(tenantID string, server *models.ServerConfiguration, client *models.ClientConfiguration, params models.RequestParameters, reqCtx *models.OAuthRequestContext) (*models.AuthorizationRequest, error) {
	now := r.now()
	scopes := utils.SplitSpaceDelimited(params.Get("scope"))
	mode, _ := models.ParseResponseMode(params.Get("response_mode"))

	request := &models.AuthorizationRequest{
		ID:                  uuid.NewString(),
		TenantID:            tenantID,
		Profile:             server.ResolveProfile(scopes),
		ClientID:            client.ClientID,
		ResponseType:        models.ParseResponseType(params.Get("response_type")),
		ResponseMode:        mode,
		Scopes:              scopes,
		RedirectURI:         params.Get("redirect_uri"),
		State:               params.Get("state"),
		Nonce:               params.Get("nonce"),
		CodeChallenge:       params.Get("code_challenge"),
		CodeChallengeMethod: params.Get("code_challenge_method"),
		LoginHint:           params.Get("login_hint"),
		ACRValues:           utils.SplitSpaceDelimited(params.Get("acr_values")),
		RequestURI:          params.Get("request_uri"),
		RequestObject:       reqCtx.Pattern != constants.RequestPatternNormal,
		CreatedAt:           now,
		ExpiresAt:           now.Add(server.AuthorizationRequestLifetime()),
	}

	for _, p := range utils.SplitSpaceDelimited(params.Get("prompt")) {
		request.Prompts = append(request.Prompts, constants.Prompt(p))
	}

	claims, err := models.ParseClaimsRequest(params.Get("claims"))
	if err != nil {
		return nil, NewBadRequest(errors.ErrInvalidRequest("claims parameter is not a valid JSON object").WithCause(err), reqCtx)
	}
	request.Claims = claims

	details, err := models.ParseAuthorizationDetails(params.Get("authorization_details"))
	if err != nil {
		return nil, NewBadRequest(errors.ErrInvalidRequest("authorization_details parameter is not a valid JSON array").WithCause(err), reqCtx)
	}
	request.AuthorizationDetails = details

	if pd := params.Get("presentation_definition"); pd != "" {
		if !json.Valid([]byte(pd)) {
			return nil, NewBadRequest(errors.ErrInvalidRequest("presentation_definition parameter is not valid JSON"), reqCtx)
		}
		request.PresentationDefinition = json.RawMessage(pd)
	}

	if v := params.Get("max_age"); v != "" {
		maxAge, err := strconv.ParseInt(v, 10, 64)
		if err != nil || maxAge < 0 {
			return nil, NewBadRequest(errors.ErrInvalidRequest("max_age must be a non-negative integer"), reqCtx)
		}
		request.MaxAge = &maxAge
	}

	return request, nil
}

// mergeRequestObject overlays request object claims on the query parameters. Claims win.
func mergeRequestObject(params models.RequestParameters, jose *models.JoseContext) models.RequestParameters {
	merged := make(models.RequestParameters, len(params)+len(jose.Claims))
	for k, v := range params {
		merged[k] = v
	}
	for k, v := range jose.Claims {
		switch k {
		case "iss", "aud", "exp", "iat", "nbf", "jti", "request", "request_uri":
			continue
		}
		if s, ok := claimToParameter(v); ok {
			merged[k] = s
		}
	}
	return merged
}

func claimToParameter(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case []interface{}:
		// scope-like arrays of strings collapse to a space-delimited value
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				b, err := json.Marshal(t)
				if err != nil {
					return "", false
				}
				return string(b), true
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// asBadRequest wraps 4xx CBCErrors; anything else is treated as a server error by the caller.
func asBadRequest(err error, reqCtx *models.OAuthRequestContext) error {
	if cbcErr, ok := errors.AsCBCError(err); ok && cbcErr.HTTPStatus() < 500 {
		return NewBadRequest(cbcErr, reqCtx)
	}
	return err
}
