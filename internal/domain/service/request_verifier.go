package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// RequestVerifier checks a resolved request against the tenant and client configuration.
// Violations found before the redirect URI is confirmed are returned as *OAuthBadRequest;
// everything after is an *OAuthRedirectableBadRequest.
type RequestVerifier struct {
	logger logger.Logger
}

// NewRequestVerifier creates a new RequestVerifier.
func NewRequestVerifier(log logger.Logger) *RequestVerifier {
	return &RequestVerifier{logger: log.WithComponent("RequestVerifier")}
}

// Verify returns a context whose request carries the filtered scopes. The input context is not modified.
func (v *RequestVerifier) Verify(ctx context.Context, reqCtx *models.OAuthRequestContext) (*models.OAuthRequestContext, error) {
	request := reqCtx.Request
	server, client := reqCtx.Server, reqCtx.Client

	// response type
	switch request.ResponseType {
	case constants.ResponseTypeUndefined:
		return nil, NewBadRequest(errors.ErrMissingRequiredParameter("response_type"), reqCtx)
	case constants.ResponseTypeUnknown:
		return nil, NewBadRequest(errors.ErrUnsupportedResponseType("response_type is not a supported combination"), reqCtx)
	}
	if !server.IsSupportedResponseType(request.ResponseType) {
		return nil, NewBadRequest(errors.ErrUnsupportedResponseType(
			fmt.Sprintf("authorization server does not support response_type (%s)", request.ResponseType)), reqCtx)
	}
	if !client.IsSupportedResponseType(request.ResponseType) {
		return nil, NewBadRequest(errors.ErrUnauthorizedClient(
			fmt.Sprintf("client is not allowed response_type (%s)", request.ResponseType)), reqCtx)
	}

	// redirect uri
	if request.HasRedirectURI() {
		if !client.IsRegisteredRedirectURI(request.RedirectURI) {
			return nil, NewBadRequest(errors.ErrInvalidRequest(
				fmt.Sprintf("redirect_uri (%s) does not match any registered redirect_uri", request.RedirectURI)), reqCtx)
		}
	} else if client.FirstRedirectURI() == "" {
		return nil, NewBadRequest(errors.ErrMissingRequiredParameter("redirect_uri"), reqCtx)
	}

	// From here on errors go back to the client.
	if err := v.verifyResponseMode(reqCtx); err != nil {
		return nil, err
	}
	if err := v.verifyPrompt(reqCtx); err != nil {
		return nil, err
	}
	if err := v.verifyRequestObject(reqCtx); err != nil {
		return nil, err
	}
	if err := v.verifyPKCE(reqCtx); err != nil {
		return nil, err
	}

	filtered := server.FilterScopes(client.FilterScopes(request.Scopes))
	if models.IncludesIDToken(request.ResponseType) && !utils.Contains(filtered, "openid") {
		return nil, NewRedirectableBadRequest(constants.ErrCodeInvalidScope,
			"response_type containing id_token requires the openid scope", reqCtx)
	}
	if models.IncludesIDToken(request.ResponseType) && !request.HasNonce() {
		return nil, NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
			"nonce is required when an id_token is returned from the authorization endpoint", reqCtx)
	}

	if err := v.verifyAuthorizationDetails(reqCtx); err != nil {
		return nil, err
	}

	verified := *request
	verified.Scopes = filtered
	out := *reqCtx
	out.Request = &verified

	if dropped := utils.Difference(request.Scopes, filtered); len(dropped) > 0 {
		v.logger.Debug(ctx, "unsupported scopes dropped",
			logger.String("client_id", client.ClientID),
			logger.Strings("scopes", dropped))
	}
	return &out, nil
}

func (v *RequestVerifier) verifyResponseMode(reqCtx *models.OAuthRequestContext) error {
	mode := reqCtx.Request.ResponseMode
	if _, known := models.ParseResponseMode(string(mode)); !known || !reqCtx.Server.IsSupportedResponseMode(mode) {
		return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
			fmt.Sprintf("response_mode (%s) is not supported", mode), reqCtx)
	}
	return nil
}

func (v *RequestVerifier) verifyPrompt(reqCtx *models.OAuthRequestContext) error {
	request := reqCtx.Request
	if request.IsPromptNone() && len(request.Prompts) > 1 {
		return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
			"prompt none must not be combined with other values", reqCtx)
	}
	for _, p := range request.Prompts {
		switch p {
		case constants.PromptNone, constants.PromptLogin, constants.PromptConsent,
			constants.PromptSelectAccount, constants.PromptCreate:
		default:
			return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
				fmt.Sprintf("prompt (%s) is not supported", p), reqCtx)
		}
	}
	return nil
}

func (v *RequestVerifier) verifyRequestObject(reqCtx *models.OAuthRequestContext) error {
	if !reqCtx.Request.IsFAPI() {
		return nil
	}
	if reqCtx.Jose.Exists() && reqCtx.Jose.IsUnsigned() {
		return NewRedirectableBadRequest(constants.ErrCodeInvalidRequestObject,
			"request object must be signed under FAPI", reqCtx)
	}
	if reqCtx.Request.Profile == constants.ProfileFAPIAdvance && !reqCtx.Jose.Exists() {
		return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
			"FAPI advance profile requires a signed request object", reqCtx)
	}
	return nil
}

func (v *RequestVerifier) verifyPKCE(reqCtx *models.OAuthRequestContext) error {
	request := reqCtx.Request
	if !models.IncludesCode(request.ResponseType) {
		return nil
	}
	required := reqCtx.Client.IsPublic() || request.IsFAPI()
	if required && !request.HasCodeChallenge() {
		return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
			"code_challenge is required for this client", reqCtx)
	}
	if !request.HasCodeChallenge() {
		return nil
	}
	switch request.CodeChallengeMethod {
	case "S256":
	case "", "plain":
		if request.IsFAPI() {
			return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
				"code_challenge_method must be S256 under FAPI", reqCtx)
		}
	default:
		return NewRedirectableBadRequest(constants.ErrCodeInvalidRequest,
			fmt.Sprintf("code_challenge_method (%s) is not supported", request.CodeChallengeMethod), reqCtx)
	}
	return nil
}

func (v *RequestVerifier) verifyAuthorizationDetails(reqCtx *models.OAuthRequestContext) error {
	details := reqCtx.Request.AuthorizationDetails
	var unsupported []string
	for _, d := range details {
		t := d.Type()
		if t == "" {
			return NewRedirectableBadRequest(constants.ErrCodeInvalidAuthorizationDetails,
				"authorization_details entry is missing the type member", reqCtx)
		}
		if !reqCtx.Server.IsSupportedAuthorizationDetailsType(t) {
			unsupported = append(unsupported, t)
			continue
		}
		if allowed := reqCtx.Client.AuthorizationDetailsTypes; len(allowed) > 0 && !utils.Contains(allowed, t) {
			unsupported = append(unsupported, t)
		}
	}
	if len(unsupported) > 0 {
		return NewRedirectableBadRequest(constants.ErrCodeInvalidAuthorizationDetails,
			fmt.Sprintf("authorization_details type (%s) is not supported", strings.Join(unsupported, " ")), reqCtx)
	}
	return nil
}
