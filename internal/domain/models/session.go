package models

import (
	"time"
)

// User is the authenticated end-user as seen by the protocol core.
type User struct {
	Subject           string                 `json:"sub"`
	Name              string                 `json:"name,omitempty"`
	GivenName         string                 `json:"given_name,omitempty"`
	FamilyName        string                 `json:"family_name,omitempty"`
	PreferredUsername string                 `json:"preferred_username,omitempty"`
	Email             string                 `json:"email,omitempty"`
	EmailVerified     bool                   `json:"email_verified,omitempty"`
	PhoneNumber       string                 `json:"phone_number,omitempty"`
	Locale            string                 `json:"locale,omitempty"`
	CustomClaims      map[string]interface{} `json:"custom_claims,omitempty"`
}

// Exists reports whether the user has been identified.
func (u User) Exists() bool { return u.Subject != "" }

// ClaimValue returns the value of a standard or custom claim. Empty standard claims are reported as absent.
func (u User) ClaimValue(name string) (interface{}, bool) {
	var v string
	switch name {
	case "sub":
		v = u.Subject
	case "name":
		v = u.Name
	case "given_name":
		v = u.GivenName
	case "family_name":
		v = u.FamilyName
	case "preferred_username":
		v = u.PreferredUsername
	case "email":
		v = u.Email
	case "email_verified":
		if u.Email == "" {
			return nil, false
		}
		return u.EmailVerified, true
	case "phone_number":
		v = u.PhoneNumber
	case "locale":
		v = u.Locale
	default:
		cv, ok := u.CustomClaims[name]
		return cv, ok
	}
	return v, v != ""
}

// Authentication records how and when the user authenticated.
type Authentication struct {
	Methods []string  `json:"amr,omitempty"`
	Time    time.Time `json:"auth_time"`
	ACR     string    `json:"acr,omitempty"`
}

// Exists reports whether an authentication event has been recorded.
func (a Authentication) Exists() bool { return !a.Time.IsZero() }

// OAuthSessionKey identifies a client session within a tenant issuer.
type OAuthSessionKey struct {
	Issuer   string `json:"issuer"`
	ClientID string `json:"client_id"`
}

// String renders the key as "issuer:clientId".
func (k OAuthSessionKey) String() string {
	return k.Issuer + ":" + k.ClientID
}

// OAuthSession is the per-client session of an authenticated user. Values are immutable:
// every transition returns a new session.
type OAuthSession struct {
	Key            OAuthSessionKey `json:"key"`
	SessionID      string          `json:"sid"`
	OPSessionID    string          `json:"op_session_id,omitempty"`
	User           User            `json:"user"`
	Authentication Authentication  `json:"authentication"`
	MaxAge         time.Duration   `json:"max_age"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	Deleted        bool            `json:"deleted,omitempty"`
}

// NewOAuthSession creates a session for a freshly authenticated user.
func NewOAuthSession(key OAuthSessionKey, sessionID, opSessionID string, user User, authentication Authentication, maxAge time.Duration, now time.Time) OAuthSession {
	return OAuthSession{
		Key:            key,
		SessionID:      sessionID,
		OPSessionID:    opSessionID,
		User:           user,
		Authentication: copyAuthentication(authentication),
		MaxAge:         maxAge,
		CreatedAt:      now,
		ExpiresAt:      now.Add(maxAge),
	}
}

// Exists reports whether the value describes a stored session.
func (s OAuthSession) Exists() bool { return s.SessionID != "" && s.User.Exists() }

func (s OAuthSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsValid reports whether the session can satisfy the request without user interaction:
// not deleted, not expired, authenticated within max_age, and prompt=login not requested.
func (s OAuthSession) IsValid(req *AuthorizationRequest, now time.Time) bool {
	if !s.Exists() || s.Deleted || s.IsExpired(now) {
		return false
	}
	if req == nil {
		return true
	}
	if req.IsPromptLogin() {
		return false
	}
	if req.MaxAge != nil {
		if *req.MaxAge <= 0 {
			return false
		}
		limit := s.Authentication.Time.Add(time.Duration(*req.MaxAge) * time.Second)
		if now.After(limit) {
			return false
		}
	}
	return true
}

// DidAuthentication returns a copy of the session refreshed by a new authentication event.
// The receiver is left untouched.
func (s OAuthSession) DidAuthentication(user User, authentication Authentication, now time.Time) OAuthSession {
	next := s
	next.User = user
	next.Authentication = copyAuthentication(authentication)
	next.ExpiresAt = now.Add(s.MaxAge)
	next.Deleted = false
	return next
}

// MarkDeleted returns a logically deleted copy of the session.
func (s OAuthSession) MarkDeleted() OAuthSession {
	next := s
	next.Deleted = true
	return next
}

// TTL returns the remaining lifetime, never negative.
func (s OAuthSession) TTL(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func copyAuthentication(a Authentication) Authentication {
	out := a
	if a.Methods != nil {
		out.Methods = append([]string(nil), a.Methods...)
	}
	return out
}

// ClientSession is a per-client session registered under an OP session.
type ClientSession struct {
	ClientID  string `json:"client_id"`
	SessionID string `json:"sid"`
	Subject   string `json:"sub"`
}

// OPSession is the single-sign-on session binding one user to every client session created under it.
type OPSession struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Subject        string          `json:"sub"`
	ClientSessions []ClientSession `json:"client_sessions"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// HasClientSessions reports whether any client session is bound.
func (o OPSession) HasClientSessions() bool { return len(o.ClientSessions) > 0 }

// WithClientSession returns a copy with cs added, replacing an existing entry for the same client.
func (o OPSession) WithClientSession(cs ClientSession) OPSession {
	next := o
	next.ClientSessions = make([]ClientSession, 0, len(o.ClientSessions)+1)
	for _, existing := range o.ClientSessions {
		if existing.ClientID != cs.ClientID {
			next.ClientSessions = append(next.ClientSessions, existing)
		}
	}
	next.ClientSessions = append(next.ClientSessions, cs)
	return next
}

// ExtendedTo returns a copy that expires no earlier than expiresAt.
func (o OPSession) ExtendedTo(expiresAt time.Time) OPSession {
	next := o
	if expiresAt.After(o.ExpiresAt) {
		next.ExpiresAt = expiresAt
	}
	return next
}
