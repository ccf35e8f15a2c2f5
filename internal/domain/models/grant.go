package models

import (
	"time"

	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// ConsentClaims records when the user accepted the client's terms of service and privacy policy.
type ConsentClaims struct {
	TermsOfServiceAcceptedAt *time.Time `json:"tos_accepted_at,omitempty"`
	PrivacyPolicyAcceptedAt  *time.Time `json:"policy_accepted_at,omitempty"`
}

// Merge keeps the earliest recorded timestamp of each kind.
func (c ConsentClaims) Merge(other ConsentClaims) ConsentClaims {
	return ConsentClaims{
		TermsOfServiceAcceptedAt: earliest(c.TermsOfServiceAcceptedAt, other.TermsOfServiceAcceptedAt),
		PrivacyPolicyAcceptedAt:  earliest(c.PrivacyPolicyAcceptedAt, other.PrivacyPolicyAcceptedAt),
	}
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

// AuthorizationGranted is what a user has granted to one client. It only grows.
type AuthorizationGranted struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	ClientID       string        `json:"client_id"`
	Subject        string        `json:"sub"`
	Scopes         []string      `json:"scopes"`
	IDTokenClaims  []string      `json:"id_token_claims"`
	UserinfoClaims []string      `json:"userinfo_claims"`
	Consent        ConsentClaims `json:"consent"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Exists reports whether the value represents a stored grant.
func (g *AuthorizationGranted) Exists() bool { return g != nil && g.ID != "" }

// UnauthorizedScopes returns the requested scopes not covered by the grant, in request order.
func (g *AuthorizationGranted) UnauthorizedScopes(requested []string) []string {
	return utils.Difference(requested, g.Scopes)
}

// UnauthorizedIDTokenClaims returns the requested ID token claims not covered by the grant.
func (g *AuthorizationGranted) UnauthorizedIDTokenClaims(requested []string) []string {
	return utils.Difference(requested, g.IDTokenClaims)
}

// UnauthorizedUserinfoClaims returns the requested userinfo claims not covered by the grant.
func (g *AuthorizationGranted) UnauthorizedUserinfoClaims(requested []string) []string {
	return utils.Difference(requested, g.UserinfoClaims)
}

// IsConsentedFor reports whether every consent the client requires has been recorded.
func (g *AuthorizationGranted) IsConsentedFor(client *ClientConfiguration) bool {
	if client.TosURI != "" && g.Consent.TermsOfServiceAcceptedAt == nil {
		return false
	}
	if client.PolicyURI != "" && g.Consent.PrivacyPolicyAcceptedAt == nil {
		return false
	}
	return true
}

// Merge returns a new grant extended by the given scopes, claims and consent.
func (g AuthorizationGranted) Merge(scopes, idTokenClaims, userinfoClaims []string, consent ConsentClaims, now time.Time) AuthorizationGranted {
	next := g
	next.Scopes = utils.Union(g.Scopes, scopes)
	next.IDTokenClaims = utils.Union(g.IDTokenClaims, idTokenClaims)
	next.UserinfoClaims = utils.Union(g.UserinfoClaims, userinfoClaims)
	next.Consent = g.Consent.Merge(consent)
	next.UpdatedAt = now
	return next
}

// AuthorizationCodeGrant is the state behind an issued authorization code, redeemed at the token endpoint.
type AuthorizationCodeGrant struct {
	Code                   string               `json:"code"`
	AuthorizationRequestID string               `json:"authorization_request_id"`
	TenantID               string               `json:"tenant_id"`
	ClientID               string               `json:"client_id"`
	User                   User                 `json:"user"`
	Authentication         Authentication       `json:"authentication"`
	Scopes                 []string             `json:"scopes"`
	Claims                 ClaimsRequest        `json:"claims"`
	AuthorizationDetails   AuthorizationDetails `json:"authorization_details,omitempty"`
	RedirectURI            string               `json:"redirect_uri,omitempty"`
	Nonce                  string               `json:"nonce,omitempty"`
	CodeChallenge          string               `json:"code_challenge,omitempty"`
	CodeChallengeMethod    string               `json:"code_challenge_method,omitempty"`
	SessionID              string               `json:"sid,omitempty"`
	CreatedAt              time.Time            `json:"created_at"`
	ExpiresAt              time.Time            `json:"expires_at"`
}

func (g *AuthorizationCodeGrant) IsExpired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// AccessToken is an access token produced by an AccessTokenCreator.
type AccessToken struct {
	Value     string              `json:"value"`
	JTI       string              `json:"jti"`
	TokenType constants.TokenType `json:"token_type"`
	Scopes    []string            `json:"scopes"`
	IssuedAt  time.Time           `json:"issued_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// ExpiresIn returns the lifetime in whole seconds.
func (t AccessToken) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

// AuthorizedToken is the record of an access token issued directly from the authorization endpoint.
type AuthorizedToken struct {
	ID                     string              `json:"id"`
	TenantID               string              `json:"tenant_id"`
	ClientID               string              `json:"client_id"`
	Subject                string              `json:"sub"`
	AuthorizationRequestID string              `json:"authorization_request_id"`
	TokenJTI               string              `json:"jti"`
	TokenType              constants.TokenType `json:"token_type"`
	Scopes                 []string            `json:"scopes"`
	IssuedAt               time.Time           `json:"issued_at"`
	ExpiresAt              time.Time           `json:"expires_at"`
}
