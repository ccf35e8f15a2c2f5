package models

import (
	"net/url"

	"github.com/turtacn/oidc-core/pkg/constants"
)

// OAuthRequestContext binds a verified request to the tenant and client configuration it was resolved against.
// Request may be nil when resolution failed before the request could be built.
type OAuthRequestContext struct {
	Pattern constants.RequestPattern
	Request *AuthorizationRequest
	Jose    *JoseContext
	Server  *ServerConfiguration
	Client  *ClientConfiguration
}

// TenantID returns the tenant of the context.
func (c *OAuthRequestContext) TenantID() string {
	if c.Server != nil {
		return c.Server.TenantID
	}
	if c.Request != nil {
		return c.Request.TenantID
	}
	return ""
}

func (c *OAuthRequestContext) ClientID() string {
	if c.Client != nil {
		return c.Client.ClientID
	}
	if c.Request != nil {
		return c.Request.ClientID
	}
	return ""
}

// Issuer returns the tenant's token issuer.
func (c *OAuthRequestContext) Issuer() string {
	if c.Server == nil {
		return ""
	}
	return c.Server.TokenIssuer
}

// RedirectURI returns the request's redirect URI or the client's first registered one.
func (c *OAuthRequestContext) RedirectURI() string {
	if c.Request != nil && c.Request.HasRedirectURI() {
		return c.Request.RedirectURI
	}
	if c.Client != nil {
		return c.Client.FirstRedirectURI()
	}
	return ""
}

func (c *OAuthRequestContext) State() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.State
}

func (c *OAuthRequestContext) ResponseType() constants.ResponseType {
	if c.Request == nil {
		return constants.ResponseTypeUndefined
	}
	return c.Request.ResponseType
}

func (c *OAuthRequestContext) ResponseMode() constants.ResponseMode {
	if c.Request == nil {
		return constants.ResponseModeUndefined
	}
	return c.Request.ResponseMode
}

func (c *OAuthRequestContext) Profile() constants.AuthorizationProfile {
	if c.Request == nil {
		return constants.ProfileOAuth2
	}
	return c.Request.Profile
}

// IsJwtMode reports whether the response must be JWT-secured (JARM). This holds for the jwt
// response modes and for every FAPI-advance response type except "code id_token".
func (c *OAuthRequestContext) IsJwtMode() bool {
	if IsJWTResponseMode(c.ResponseMode()) {
		return true
	}
	return c.Profile() == constants.ProfileFAPIAdvance && c.ResponseType() != constants.ResponseTypeCodeIDToken
}

// ResponseModeValue returns the delimiter between the redirect URI and the response parameters.
// An explicit query or fragment mode wins; otherwise the response type decides.
func (c *OAuthRequestContext) ResponseModeValue() string {
	if d := ResponseModeDelimiter(c.ResponseMode()); d != "" {
		return d
	}
	return DefaultDelimiter(c.ResponseType())
}

func (c *OAuthRequestContext) IsPromptNone() bool {
	return c.Request != nil && c.Request.IsPromptNone()
}

// SessionKey returns the key of the client session this request is evaluated against.
func (c *OAuthRequestContext) SessionKey() OAuthSessionKey {
	return OAuthSessionKey{Issuer: c.Issuer(), ClientID: c.ClientID()}
}

// IsRedirectable reports whether errors for this context can be sent to the redirect URI.
func (c *OAuthRequestContext) IsRedirectable() bool {
	return c.Server != nil && c.Client != nil && c.RedirectURI() != ""
}

// RequestParameters holds the single-valued parameters of an authorization request.
type RequestParameters map[string]string

// NewRequestParameters keeps the first value of each query parameter.
func NewRequestParameters(values url.Values) RequestParameters {
	params := make(RequestParameters, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func (p RequestParameters) Get(key string) string { return p[key] }

func (p RequestParameters) Has(key string) bool { return p[key] != "" }
