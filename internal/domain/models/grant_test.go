package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizationGranted_Unauthorized(t *testing.T) {
	g := &AuthorizationGranted{
		ID:             "g1",
		Scopes:         []string{"openid", "profile"},
		IDTokenClaims:  []string{"email"},
		UserinfoClaims: []string{"name"},
	}
	assert.Empty(t, g.UnauthorizedScopes([]string{"openid"}))
	assert.Equal(t, []string{"email", "phone"}, g.UnauthorizedScopes([]string{"openid", "email", "phone"}))
	assert.Equal(t, []string{"acr"}, g.UnauthorizedIDTokenClaims([]string{"acr", "email"}))
	assert.Empty(t, g.UnauthorizedUserinfoClaims([]string{"name"}))
}

func TestAuthorizationGranted_MergeGrowsMonotonically(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	g := AuthorizationGranted{
		ID:      "g1",
		Scopes:  []string{"openid"},
		Consent: ConsentClaims{TermsOfServiceAcceptedAt: &earlier},
	}
	merged := g.Merge([]string{"profile", "openid"}, []string{"email"}, nil, ConsentClaims{TermsOfServiceAcceptedAt: &now, PrivacyPolicyAcceptedAt: &now}, now)

	assert.Equal(t, []string{"openid"}, g.Scopes)
	assert.Equal(t, []string{"openid", "profile"}, merged.Scopes)
	assert.Equal(t, []string{"email"}, merged.IDTokenClaims)
	assert.Equal(t, earlier, *merged.Consent.TermsOfServiceAcceptedAt)
	assert.Equal(t, now, *merged.Consent.PrivacyPolicyAcceptedAt)
	assert.Equal(t, now, merged.UpdatedAt)
}

func TestAuthorizationGranted_IsConsentedFor(t *testing.T) {
	now := time.Now()
	client := &ClientConfiguration{TosURI: "https://rp/tos", PolicyURI: "https://rp/policy"}

	g := &AuthorizationGranted{ID: "g", Consent: ConsentClaims{TermsOfServiceAcceptedAt: &now}}
	assert.False(t, g.IsConsentedFor(client))

	g.Consent.PrivacyPolicyAcceptedAt = &now
	assert.True(t, g.IsConsentedFor(client))

	assert.True(t, (&AuthorizationGranted{ID: "g"}).IsConsentedFor(&ClientConfiguration{}))
}

func TestAccessToken_ExpiresIn(t *testing.T) {
	now := time.Now()
	tok := AccessToken{IssuedAt: now, ExpiresAt: now.Add(90 * time.Minute)}
	assert.Equal(t, int64(5400), tok.ExpiresIn())
}
