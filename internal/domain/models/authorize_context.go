package models

import (
	"time"

	"github.com/turtacn/oidc-core/pkg/utils"
)

// AuthorizationContext is the in-memory aggregate a prompt=none decision is made on:
// the resolved request together with the client session and the stored grant.
type AuthorizationContext struct {
	RequestContext *OAuthRequestContext
	Session        *OAuthSession
	Granted        *AuthorizationGranted
	Now            time.Time
}

// HasValidSession reports whether a live session satisfies the request.
func (a *AuthorizationContext) HasValidSession() bool {
	return a.Session != nil && a.Session.IsValid(a.RequestContext.Request, a.Now)
}

func (a *AuthorizationContext) HasGranted() bool {
	return a.Granted.Exists()
}

// RequestedScopes returns the scopes to compare against the grant.
func (a *AuthorizationContext) RequestedScopes() []string {
	if a.RequestContext.Request == nil {
		return nil
	}
	return a.RequestContext.Request.Scopes
}

func (a *AuthorizationContext) UnauthorizedScopes() []string {
	return a.Granted.UnauthorizedScopes(a.RequestedScopes())
}

func (a *AuthorizationContext) UnauthorizedIDTokenClaims() []string {
	if a.RequestContext.Request == nil {
		return nil
	}
	return a.Granted.UnauthorizedIDTokenClaims(a.RequestContext.Request.Claims.IDTokenClaimNames())
}

func (a *AuthorizationContext) UnauthorizedUserinfoClaims() []string {
	if a.RequestContext.Request == nil {
		return nil
	}
	return a.Granted.UnauthorizedUserinfoClaims(a.RequestContext.Request.Claims.UserInfoClaimNames())
}

// IsConsentMissing reports whether the client requires consent the grant does not record.
func (a *AuthorizationContext) IsConsentMissing() bool {
	client := a.RequestContext.Client
	return client != nil && client.RequiresConsent() && !a.Granted.IsConsentedFor(client)
}

// OAuthAuthorizeContext carries everything a response builder needs beyond the request:
// who authenticated, how, and under which client session.
type OAuthAuthorizeContext struct {
	RequestContext *OAuthRequestContext
	User           User
	Authentication Authentication
	SessionID      string
	Now            time.Time
}

// Scopes returns the scopes the response is issued for.
func (a *OAuthAuthorizeContext) Scopes() []string {
	if a.RequestContext.Request == nil {
		return nil
	}
	return a.RequestContext.Request.Scopes
}

// ScopeValue returns the scopes as a space-delimited string.
func (a *OAuthAuthorizeContext) ScopeValue() string {
	if a.RequestContext.Request == nil {
		return ""
	}
	return a.RequestContext.Request.ScopeValue()
}

// IsOpenID reports whether an ID token may be issued.
func (a *OAuthAuthorizeContext) IsOpenID() bool {
	return utils.Contains(a.Scopes(), "openid")
}

// IDTokenCustomClaims are the response values an ID token binds to through hash claims.
type IDTokenCustomClaims struct {
	Code        string
	AccessToken string
	State       string
}
