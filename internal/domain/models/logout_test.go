package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/oidc-core/pkg/constants"
)

func TestLogoutToken_ClaimsRoundTrip(t *testing.T) {
	now := time.Unix(1767225600, 0).UTC()
	tok := NewLogoutToken("https://op.example.com", "client-1", "user-1", "sid-1", now, 0)

	require.NotEmpty(t, tok.JTI)
	assert.Equal(t, now.Add(constants.LogoutTokenLifetime), tok.ExpiresAt)
	assert.True(t, tok.HasBackChannelLogoutEvent())

	// Simulate a JWT library decoding claims from JSON.
	raw, err := json.Marshal(tok.ToClaimsMap())
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	back, err := LogoutTokenFromClaims(decoded)
	require.NoError(t, err)
	assert.Equal(t, tok.Issuer, back.Issuer)
	assert.Equal(t, tok.Subject, back.Subject)
	assert.Equal(t, tok.Audience, back.Audience)
	assert.Equal(t, tok.JTI, back.JTI)
	assert.Equal(t, tok.SessionID, back.SessionID)
	assert.True(t, tok.IssuedAt.Equal(back.IssuedAt))
	assert.True(t, tok.ExpiresAt.Equal(back.ExpiresAt))
	assert.True(t, back.HasBackChannelLogoutEvent())
}

func TestLogoutToken_ToClaimsMapOmitsEmptyOptionals(t *testing.T) {
	tok := NewLogoutToken("https://op", "c", "", "sid", time.Now(), time.Minute)
	claims := tok.ToClaimsMap()
	_, hasSub := claims["sub"]
	assert.False(t, hasSub)
	assert.Equal(t, "sid", claims["sid"])
	_, hasNonce := claims["nonce"]
	assert.False(t, hasNonce)
}

func TestLogoutTokenFromClaims_Audience(t *testing.T) {
	base := func(aud interface{}) map[string]interface{} {
		return map[string]interface{}{"iss": "https://op", "aud": aud, "iat": float64(1), "jti": "j"}
	}

	tok, err := LogoutTokenFromClaims(base([]interface{}{"client-1"}))
	require.NoError(t, err)
	assert.Equal(t, "client-1", tok.Audience)

	_, err = LogoutTokenFromClaims(base([]interface{}{"a", "b"}))
	assert.Error(t, err)

	_, err = LogoutTokenFromClaims(base(42))
	assert.Error(t, err)

	_, err = LogoutTokenFromClaims(map[string]interface{}{"iat": "yesterday"})
	assert.Error(t, err)
}

func TestLogoutNotification_Transitions(t *testing.T) {
	now := time.Now()
	n := NewBackChannelNotification("t", ClientSession{ClientID: "c", SessionID: "s", Subject: "u"}, "https://rp/bcl", "jti", now)
	assert.Equal(t, constants.LogoutStatusPending, n.Status)
	assert.Nil(t, n.CompletedAt)

	ok := n.Succeeded(200, now)
	assert.Equal(t, constants.LogoutStatusPending, n.Status)
	assert.Equal(t, constants.LogoutStatusSuccess, ok.Status)
	assert.False(t, ok.ShouldRetry())
	require.NotNil(t, ok.CompletedAt)

	assert.True(t, n.Failed(503, "unavailable", now).ShouldRetry())
	assert.False(t, n.Failed(400, "bad", now).ShouldRetry())
	assert.True(t, n.TimedOut("deadline", now).ShouldRetry())
}

func TestFrontChannelLogoutDescriptor_URL(t *testing.T) {
	d := NewFrontChannelLogoutDescriptor("c", "https://rp/logout", "https://op", "sid-1", true)
	assert.Equal(t, "https://rp/logout?iss=https%3A%2F%2Fop&sid=sid-1", d.URL())

	d = NewFrontChannelLogoutDescriptor("c", "https://rp/logout?x=1", "https://op", "sid-1", false)
	assert.Equal(t, "https://rp/logout?x=1&iss=https%3A%2F%2Fop", d.URL())
}

func TestLogoutResult(t *testing.T) {
	now := time.Now()
	pending := NewBackChannelNotification("t", ClientSession{ClientID: "c"}, "https://rp/bcl", "j", now)
	r := LogoutResult{
		Notifications: []LogoutNotification{pending.Succeeded(204, now), pending.TimedOut("x", now)},
		FrontChannel:  []FrontChannelLogoutDescriptor{NewFrontChannelLogoutDescriptor("d", "https://rp2/logout", "https://op", "", false)},
	}
	assert.False(t, r.IsEmpty())
	assert.True(t, r.HasFailures())
	assert.Len(t, r.Retryable(), 1)

	page := r.FrontChannelHTML()
	assert.Equal(t, 1, strings.Count(page, "<iframe"))
	assert.Contains(t, page, "https://rp2/logout?iss=https%3A%2F%2Fop")

	assert.True(t, LogoutResult{}.IsEmpty())
}
