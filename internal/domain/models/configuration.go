package models

import (
	"time"

	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// ServerConfiguration is the per-tenant authorization server metadata consumed by the protocol core.
type ServerConfiguration struct {
	TenantID              string `json:"tenant_id"`
	TokenIssuer           string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	ResponseTypesSupported             []string `json:"response_types_supported"`
	ResponseModesSupported             []string `json:"response_modes_supported"`
	ScopesSupported                    []string `json:"scopes_supported"`
	ClaimsSupported                    []string `json:"claims_supported"`
	AuthorizationDetailsTypesSupported []string `json:"authorization_details_types_supported"`

	// FAPIBaselineScopes and FAPIAdvanceScopes select the security profile of a request.
	FAPIBaselineScopes []string `json:"fapi_baseline_scopes"`
	FAPIAdvanceScopes  []string `json:"fapi_advance_scopes"`

	// JWKS is the tenant's public JSON Web Key Set.
	JWKS string `json:"jwks"`

	// SigningKeyID selects the key used for ID tokens, JARM responses and logout tokens.
	SigningKeyID     string `json:"signing_key_id"`
	SigningAlgorithm string `json:"signing_algorithm"`

	AuthorizationCodeValidDuration time.Duration `json:"authorization_code_valid_duration"`
	AuthorizationRequestDuration   time.Duration `json:"authorization_request_duration"`
	AuthorizationResponseDuration  time.Duration `json:"authorization_response_duration"`
	AccessTokenDuration            time.Duration `json:"access_token_duration"`
	IDTokenDuration                time.Duration `json:"id_token_duration"`
	OAuthSessionDuration           time.Duration `json:"oauth_session_duration"`

	// Upstream is the federated identity provider whose back-channel logout tokens this tenant
	// accepts. Nil when the tenant is not federated.
	Upstream *UpstreamProvider `json:"upstream,omitempty"`
}

// UpstreamProvider describes an identity provider this tenant is a relying party of.
type UpstreamProvider struct {
	Issuer   string `json:"issuer"`
	ClientID string `json:"client_id"`
	JWKS     string `json:"jwks"`
}

// IsSupportedResponseType reports whether the server accepts the canonical response type.
func (s *ServerConfiguration) IsSupportedResponseType(rt constants.ResponseType) bool {
	return containsResponseType(s.ResponseTypesSupported, rt)
}

// IsSupportedResponseMode reports whether the server accepts the response mode. An absent mode is always accepted.
func (s *ServerConfiguration) IsSupportedResponseMode(m constants.ResponseMode) bool {
	if m == constants.ResponseModeUndefined {
		return true
	}
	return utils.Contains(s.ResponseModesSupported, string(m))
}

// FilterScopes drops scopes the server does not support, keeping request order.
func (s *ServerConfiguration) FilterScopes(scopes []string) []string {
	return utils.Intersect(scopes, s.ScopesSupported)
}

// IsSupportedAuthorizationDetailsType reports whether a RAR detail type is declared by the server.
func (s *ServerConfiguration) IsSupportedAuthorizationDetailsType(t string) bool {
	return utils.Contains(s.AuthorizationDetailsTypesSupported, t)
}

// ResolveProfile derives the security profile from the requested scopes.
func (s *ServerConfiguration) ResolveProfile(scopes []string) constants.AuthorizationProfile {
	switch {
	case len(utils.Intersect(scopes, s.FAPIAdvanceScopes)) > 0:
		return constants.ProfileFAPIAdvance
	case len(utils.Intersect(scopes, s.FAPIBaselineScopes)) > 0:
		return constants.ProfileFAPIBaseline
	case utils.Contains(scopes, "openid"):
		return constants.ProfileOIDC
	default:
		return constants.ProfileOAuth2
	}
}

// AuthorizationResponseLifetime returns the JARM exp distance, falling back to the default.
func (s *ServerConfiguration) AuthorizationResponseLifetime() time.Duration {
	return durationOr(s.AuthorizationResponseDuration, constants.AuthorizationResponseDefaultTTL)
}

func (s *ServerConfiguration) AuthorizationCodeLifetime() time.Duration {
	return durationOr(s.AuthorizationCodeValidDuration, constants.AuthorizationCodeDefaultTTL)
}

func (s *ServerConfiguration) AuthorizationRequestLifetime() time.Duration {
	return durationOr(s.AuthorizationRequestDuration, constants.AuthorizationRequestDefaultTTL)
}

func (s *ServerConfiguration) AccessTokenLifetime() time.Duration {
	return durationOr(s.AccessTokenDuration, constants.AccessTokenDefaultTTL)
}

func (s *ServerConfiguration) IDTokenLifetime() time.Duration {
	return durationOr(s.IDTokenDuration, constants.IDTokenDefaultTTL)
}

func (s *ServerConfiguration) OAuthSessionLifetime() time.Duration {
	return durationOr(s.OAuthSessionDuration, constants.OAuthSessionDefaultTTL)
}

// ClientConfiguration is the registered metadata of one relying party within a tenant.
type ClientConfiguration struct {
	TenantID     string `json:"tenant_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	ClientName   string `json:"client_name,omitempty"`

	RedirectURIs  []string `json:"redirect_uris"`
	ResponseTypes []string `json:"response_types"`
	Scopes        []string `json:"scopes"`
	RequestURIs   []string `json:"request_uris,omitempty"`

	// TokenEndpointAuthMethod "none" marks a public client.
	TokenEndpointAuthMethod string `json:"token_endpoint_auth_method"`

	JWKS string `json:"jwks,omitempty"`

	TosURI    string `json:"tos_uri,omitempty"`
	PolicyURI string `json:"policy_uri,omitempty"`

	BackchannelLogoutURI              string `json:"backchannel_logout_uri,omitempty"`
	BackchannelLogoutSessionRequired  bool   `json:"backchannel_logout_session_required,omitempty"`
	FrontchannelLogoutURI             string `json:"frontchannel_logout_uri,omitempty"`
	FrontchannelLogoutSessionRequired bool   `json:"frontchannel_logout_session_required,omitempty"`

	AuthorizationSignedResponseAlg string   `json:"authorization_signed_response_alg,omitempty"`
	AuthorizationDetailsTypes      []string `json:"authorization_details_types,omitempty"`

	// AllowUnsignedRequestObject admits alg=none request objects outside FAPI.
	AllowUnsignedRequestObject bool `json:"allow_unsigned_request_object,omitempty"`
}

// IsPublic reports whether the client has no credentials of its own.
func (c *ClientConfiguration) IsPublic() bool {
	return c.TokenEndpointAuthMethod == "none"
}

// IsRegisteredRedirectURI compares by exact string match.
func (c *ClientConfiguration) IsRegisteredRedirectURI(uri string) bool {
	return utils.Contains(c.RedirectURIs, uri)
}

// FirstRedirectURI returns the fallback redirect URI, or "" when none is registered.
func (c *ClientConfiguration) FirstRedirectURI() string {
	if len(c.RedirectURIs) == 0 {
		return ""
	}
	return c.RedirectURIs[0]
}

func (c *ClientConfiguration) IsRegisteredRequestURI(uri string) bool {
	return utils.Contains(c.RequestURIs, uri)
}

func (c *ClientConfiguration) IsSupportedResponseType(rt constants.ResponseType) bool {
	return containsResponseType(c.ResponseTypes, rt)
}

// FilterScopes drops scopes the client is not allowed to request.
func (c *ClientConfiguration) FilterScopes(scopes []string) []string {
	if len(c.Scopes) == 0 {
		return scopes
	}
	return utils.Intersect(scopes, c.Scopes)
}

// RequiresConsent reports whether the client declares terms of service or a privacy policy.
func (c *ClientConfiguration) RequiresConsent() bool {
	return c.TosURI != "" || c.PolicyURI != ""
}

func (c *ClientConfiguration) HasBackChannelLogout() bool { return c.BackchannelLogoutURI != "" }

func (c *ClientConfiguration) HasFrontChannelLogout() bool { return c.FrontchannelLogoutURI != "" }

func containsResponseType(values []string, rt constants.ResponseType) bool {
	for _, v := range values {
		if ParseResponseType(v) == rt {
			return true
		}
	}
	return false
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
