package models

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/oidc-core/pkg/constants"
)

// ================================================================================
// Logout token
// ================================================================================

// LogoutToken is the claim set of an OIDC Back-Channel Logout token.
type LogoutToken struct {
	Issuer    string                 `json:"iss"`
	Subject   string                 `json:"sub,omitempty"`
	Audience  string                 `json:"aud"`
	IssuedAt  time.Time              `json:"iat"`
	ExpiresAt time.Time              `json:"exp"`
	JTI       string                 `json:"jti"`
	SessionID string                 `json:"sid,omitempty"`
	Events    map[string]interface{} `json:"events"`
	Nonce     string                 `json:"nonce,omitempty"`
}

// NewLogoutToken builds a token for one client session with a fresh jti.
func NewLogoutToken(issuer, clientID, subject, sessionID string, now time.Time, lifetime time.Duration) LogoutToken {
	if lifetime <= 0 {
		lifetime = constants.LogoutTokenLifetime
	}
	return LogoutToken{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  clientID,
		IssuedAt:  now,
		ExpiresAt: now.Add(lifetime),
		JTI:       uuid.NewString(),
		SessionID: sessionID,
		Events: map[string]interface{}{
			constants.BackChannelLogoutEvent: map[string]interface{}{},
		},
	}
}

// HasBackChannelLogoutEvent reports whether events carries the back-channel logout member.
func (t LogoutToken) HasBackChannelLogoutEvent() bool {
	_, ok := t.Events[constants.BackChannelLogoutEvent]
	return ok
}

// HasSubjectOrSession reports whether at least one of sub and sid is present.
func (t LogoutToken) HasSubjectOrSession() bool {
	return t.Subject != "" || t.SessionID != ""
}

// ToClaimsMap returns the JWT claims. Optional sub and sid are omitted when empty.
func (t LogoutToken) ToClaimsMap() map[string]interface{} {
	claims := map[string]interface{}{
		"iss":    t.Issuer,
		"aud":    t.Audience,
		"iat":    t.IssuedAt.Unix(),
		"jti":    t.JTI,
		"events": t.Events,
	}
	if !t.ExpiresAt.IsZero() {
		claims["exp"] = t.ExpiresAt.Unix()
	}
	if t.Subject != "" {
		claims["sub"] = t.Subject
	}
	if t.SessionID != "" {
		claims["sid"] = t.SessionID
	}
	if t.Nonce != "" {
		claims["nonce"] = t.Nonce
	}
	return claims
}

// LogoutTokenFromClaims reads a token from verified JWT claims. aud may be a string or a
// single-element array; anything else is rejected.
func LogoutTokenFromClaims(claims map[string]interface{}) (LogoutToken, error) {
	var t LogoutToken
	t.Issuer, _ = claims["iss"].(string)
	t.Subject, _ = claims["sub"].(string)
	t.JTI, _ = claims["jti"].(string)
	t.SessionID, _ = claims["sid"].(string)
	t.Nonce, _ = claims["nonce"].(string)

	switch aud := claims["aud"].(type) {
	case string:
		t.Audience = aud
	case []string:
		if len(aud) != 1 {
			return LogoutToken{}, fmt.Errorf("aud must name exactly one client, got %d", len(aud))
		}
		t.Audience = aud[0]
	case []interface{}:
		if len(aud) != 1 {
			return LogoutToken{}, fmt.Errorf("aud must name exactly one client, got %d", len(aud))
		}
		s, ok := aud[0].(string)
		if !ok {
			return LogoutToken{}, fmt.Errorf("aud must be a string")
		}
		t.Audience = s
	case nil:
	default:
		return LogoutToken{}, fmt.Errorf("unsupported aud type %T", aud)
	}

	iat, err := numericDate(claims["iat"])
	if err != nil {
		return LogoutToken{}, fmt.Errorf("iat: %w", err)
	}
	t.IssuedAt = iat
	if v, ok := claims["exp"]; ok && v != nil {
		exp, err := numericDate(v)
		if err != nil {
			return LogoutToken{}, fmt.Errorf("exp: %w", err)
		}
		t.ExpiresAt = exp
	}

	if events, ok := claims["events"].(map[string]interface{}); ok {
		t.Events = events
	}
	return t, nil
}

func numericDate(v interface{}) (time.Time, error) {
	var sec float64
	switch n := v.(type) {
	case float64:
		sec = n
	case int64:
		sec = float64(n)
	case int:
		sec = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, err
		}
		sec = f
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported numeric date type %T", v)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// LogoutTokenValidation is the outcome of validating a received logout token.
type LogoutTokenValidation struct {
	Valid            bool
	Token            *LogoutToken
	ErrorCode        string
	ErrorDescription string
}

// LogoutTokenValid returns a successful validation result.
func LogoutTokenValid(token LogoutToken) LogoutTokenValidation {
	return LogoutTokenValidation{Valid: true, Token: &token}
}

// LogoutTokenInvalid returns a failed validation result.
func LogoutTokenInvalid(code, description string) LogoutTokenValidation {
	return LogoutTokenValidation{ErrorCode: code, ErrorDescription: description}
}

// ================================================================================
// Logout notification
// ================================================================================

// LogoutNotification is the delivery record of one back-channel or front-channel notification.
// Transitions return new values.
type LogoutNotification struct {
	ID             string                             `json:"id"`
	TenantID       string                             `json:"tenant_id"`
	Channel        constants.LogoutChannel            `json:"channel"`
	ClientID       string                             `json:"client_id"`
	SessionID      string                             `json:"sid,omitempty"`
	Subject        string                             `json:"sub,omitempty"`
	LogoutURI      string                             `json:"logout_uri"`
	LogoutTokenJTI string                             `json:"logout_token_jti,omitempty"`
	Status         constants.LogoutNotificationStatus `json:"status"`
	HTTPStatusCode int                                `json:"http_status_code,omitempty"`
	ErrorMessage   string                             `json:"error_message,omitempty"`
	CreatedAt      time.Time                          `json:"created_at"`
	CompletedAt    *time.Time                         `json:"completed_at,omitempty"`
}

// NewBackChannelNotification creates a pending back-channel notification.
func NewBackChannelNotification(tenantID string, cs ClientSession, logoutURI, jti string, now time.Time) LogoutNotification {
	return LogoutNotification{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Channel:        constants.LogoutChannelBack,
		ClientID:       cs.ClientID,
		SessionID:      cs.SessionID,
		Subject:        cs.Subject,
		LogoutURI:      logoutURI,
		LogoutTokenJTI: jti,
		Status:         constants.LogoutStatusPending,
		CreatedAt:      now,
	}
}

// Succeeded returns the notification completed with a 2xx status.
func (n LogoutNotification) Succeeded(httpStatus int, now time.Time) LogoutNotification {
	return n.complete(constants.LogoutStatusSuccess, httpStatus, "", now)
}

// Failed returns the notification completed with an error.
func (n LogoutNotification) Failed(httpStatus int, message string, now time.Time) LogoutNotification {
	return n.complete(constants.LogoutStatusFailed, httpStatus, message, now)
}

// TimedOut returns the notification completed without a response.
func (n LogoutNotification) TimedOut(message string, now time.Time) LogoutNotification {
	return n.complete(constants.LogoutStatusTimeout, 0, message, now)
}

func (n LogoutNotification) complete(status constants.LogoutNotificationStatus, httpStatus int, message string, now time.Time) LogoutNotification {
	next := n
	next.Status = status
	next.HTTPStatusCode = httpStatus
	next.ErrorMessage = message
	completed := now
	next.CompletedAt = &completed
	return next
}

func (n LogoutNotification) IsSuccess() bool {
	return n.Status == constants.LogoutStatusSuccess
}

// ShouldRetry reports whether redelivery makes sense: timeouts and 5xx responses.
func (n LogoutNotification) ShouldRetry() bool {
	if n.Status == constants.LogoutStatusTimeout {
		return true
	}
	return n.Status == constants.LogoutStatusFailed && n.HTTPStatusCode >= 500
}

// ================================================================================
// Front-channel logout
// ================================================================================

// FrontChannelLogoutDescriptor is a logout URI the user agent must load for one client.
type FrontChannelLogoutDescriptor struct {
	ClientID  string `json:"client_id"`
	LogoutURI string `json:"logout_uri"`
	Issuer    string `json:"iss"`
	SessionID string `json:"sid,omitempty"`
}

// NewFrontChannelLogoutDescriptor creates a descriptor; sid is only kept when the client requires it.
func NewFrontChannelLogoutDescriptor(clientID, logoutURI, issuer, sessionID string, sessionRequired bool) FrontChannelLogoutDescriptor {
	d := FrontChannelLogoutDescriptor{ClientID: clientID, LogoutURI: logoutURI, Issuer: issuer}
	if sessionRequired {
		d.SessionID = sessionID
	}
	return d
}

// URL returns the logout URI with iss and, when present, sid appended.
func (d FrontChannelLogoutDescriptor) URL() string {
	q := url.Values{}
	q.Set("iss", d.Issuer)
	if d.SessionID != "" {
		q.Set("sid", d.SessionID)
	}
	sep := "?"
	if strings.Contains(d.LogoutURI, "?") {
		sep = "&"
	}
	return d.LogoutURI + sep + q.Encode()
}

// LogoutResult lists every client a logout attempted to notify.
type LogoutResult struct {
	TenantID      string                         `json:"tenant_id"`
	OPSessionID   string                         `json:"op_session_id"`
	Subject       string                         `json:"sub,omitempty"`
	Notifications []LogoutNotification           `json:"notifications"`
	FrontChannel  []FrontChannelLogoutDescriptor `json:"front_channel"`
}

// IsEmpty reports whether no client was notified.
func (r LogoutResult) IsEmpty() bool {
	return len(r.Notifications) == 0 && len(r.FrontChannel) == 0
}

// HasFailures reports whether any back-channel notification did not succeed.
func (r LogoutResult) HasFailures() bool {
	for _, n := range r.Notifications {
		if !n.IsSuccess() {
			return true
		}
	}
	return false
}

// Retryable returns the notifications a caller may redeliver.
func (r LogoutResult) Retryable() []LogoutNotification {
	var out []LogoutNotification
	for _, n := range r.Notifications {
		if n.ShouldRetry() {
			out = append(out, n)
		}
	}
	return out
}

// FrontChannelHTML renders a page embedding one hidden iframe per front-channel descriptor.
func (r LogoutResult) FrontChannelHTML() string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Logout</title></head><body>")
	for _, d := range r.FrontChannel {
		sb.WriteString(`<iframe style="display:none" src="`)
		sb.WriteString(html.EscapeString(d.URL()))
		sb.WriteString(`"></iframe>`)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// BackChannelResponse is the relying party's answer to a back-channel logout POST.
type BackChannelResponse struct {
	StatusCode int
	Body       string
}
