package dto

import (
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
)

// AuthorizationStatus is the outcome of an authorization endpoint call.
type AuthorizationStatus string

const (
	// AuthorizationStatusOK means the request is valid and user interaction is required.
	AuthorizationStatusOK                     AuthorizationStatus = "OK"
	AuthorizationStatusAutoAuthorized         AuthorizationStatus = "AUTO_AUTHORIZED"
	AuthorizationStatusAuthorized             AuthorizationStatus = "AUTHORIZED"
	AuthorizationStatusDenied                 AuthorizationStatus = "DENIED"
	AuthorizationStatusRedirectableBadRequest AuthorizationStatus = "REDIRECTABLE_BAD_REQUEST"
	AuthorizationStatusBadRequest             AuthorizationStatus = "BAD_REQUEST"
	AuthorizationStatusServerError            AuthorizationStatus = "SERVER_ERROR"
)

// AuthorizationRequestResult describes what the transport must do next: redirect the user agent
// to RedirectURI, render an error, or start the interactive login for AuthorizationRequestID.
type AuthorizationRequestResult struct {
	Status AuthorizationStatus `json:"status"`

	AuthorizationRequestID string   `json:"authorization_request_id,omitempty"`
	TenantID               string   `json:"tenant_id,omitempty"`
	ClientID               string   `json:"client_id,omitempty"`
	ClientName             string   `json:"client_name,omitempty"`
	Scopes                 []string `json:"scopes,omitempty"`
	Prompts                []string `json:"prompts,omitempty"`
	LoginHint              string   `json:"login_hint,omitempty"`
	MaxAge                 *int64   `json:"max_age,omitempty"`
	ACRValues              []string `json:"acr_values,omitempty"`
	ExpiresAt              int64    `json:"expires_at,omitempty"`

	// RedirectURI is the complete location including the encoded response.
	RedirectURI string `json:"redirect_uri,omitempty"`

	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`

	SessionID   string `json:"sid,omitempty"`
	OPSessionID string `json:"op_session_id,omitempty"`
}

// IsRedirect reports whether the user agent must be sent to RedirectURI.
func (r *AuthorizationRequestResult) IsRedirect() bool { return r.RedirectURI != "" }

// NewInteractionRequired describes a registered request waiting for the user.
func NewInteractionRequired(reqCtx *models.OAuthRequestContext) *AuthorizationRequestResult {
	req := reqCtx.Request
	prompts := make([]string, 0, len(req.Prompts))
	for _, p := range req.Prompts {
		prompts = append(prompts, string(p))
	}
	result := &AuthorizationRequestResult{
		Status:                 AuthorizationStatusOK,
		AuthorizationRequestID: req.ID,
		TenantID:               reqCtx.TenantID(),
		ClientID:               reqCtx.ClientID(),
		Scopes:                 req.Scopes,
		Prompts:                prompts,
		LoginHint:              req.LoginHint,
		MaxAge:                 req.MaxAge,
		ACRValues:              req.ACRValues,
	}
	if reqCtx.Client != nil {
		result.ClientName = reqCtx.Client.ClientName
	}
	if !req.ExpiresAt.IsZero() {
		result.ExpiresAt = req.ExpiresAt.Unix()
	}
	return result
}

// NewErrorResult describes a request rejected without a redirect.
func NewErrorResult(status AuthorizationStatus, code, description string) *AuthorizationRequestResult {
	return &AuthorizationRequestResult{Status: status, Error: code, ErrorDescription: description}
}

// AuthorizeRequest carries the outcome of the interactive login and consent.
type AuthorizeRequest struct {
	Subject           string                 `json:"sub" binding:"required"`
	Name              string                 `json:"name,omitempty"`
	GivenName         string                 `json:"given_name,omitempty"`
	FamilyName        string                 `json:"family_name,omitempty"`
	PreferredUsername string                 `json:"preferred_username,omitempty"`
	Email             string                 `json:"email,omitempty" binding:"omitempty,email"`
	EmailVerified     bool                   `json:"email_verified,omitempty"`
	PhoneNumber       string                 `json:"phone_number,omitempty"`
	Locale            string                 `json:"locale,omitempty"`
	CustomClaims      map[string]interface{} `json:"custom_claims,omitempty"`

	// AuthMethods, AuthTime and ACR describe the authentication event. AuthTime is a Unix
	// timestamp; zero means the user authenticated just now.
	AuthMethods []string `json:"amr,omitempty"`
	AuthTime    int64    `json:"auth_time,omitempty" binding:"gte=0"`
	ACR         string   `json:"acr,omitempty"`

	// OPSessionID joins an existing single-sign-on session; a new one is started when empty.
	OPSessionID string `json:"op_session_id,omitempty"`

	// UpstreamSessionID is the sid the tenant's upstream provider issued when the user
	// authenticated there. Its logout tokens end the OP session bound here.
	UpstreamSessionID string `json:"upstream_sid,omitempty"`

	AcceptTermsOfService bool `json:"accept_tos,omitempty"`
	AcceptPrivacyPolicy  bool `json:"accept_policy,omitempty"`
}

// ToUser returns the authenticated user.
func (r *AuthorizeRequest) ToUser() models.User {
	return models.User{
		Subject:           r.Subject,
		Name:              r.Name,
		GivenName:         r.GivenName,
		FamilyName:        r.FamilyName,
		PreferredUsername: r.PreferredUsername,
		Email:             r.Email,
		EmailVerified:     r.EmailVerified,
		PhoneNumber:       r.PhoneNumber,
		Locale:            r.Locale,
		CustomClaims:      r.CustomClaims,
	}
}

func (r *AuthorizeRequest) ToAuthentication(now time.Time) models.Authentication {
	at := now
	if r.AuthTime > 0 {
		at = time.Unix(r.AuthTime, 0).UTC()
	}
	return models.Authentication{Methods: r.AuthMethods, Time: at, ACR: r.ACR}
}

// ToConsent stamps the accepted documents with now.
func (r *AuthorizeRequest) ToConsent(now time.Time) models.ConsentClaims {
	var c models.ConsentClaims
	if r.AcceptTermsOfService {
		t := now
		c.TermsOfServiceAcceptedAt = &t
	}
	if r.AcceptPrivacyPolicy {
		t := now
		c.PrivacyPolicyAcceptedAt = &t
	}
	return c
}

// DenyRequest carries the reason an interactive request was refused.
type DenyRequest struct {
	Reason string `json:"reason,omitempty" form:"reason"`
}
