// Package models defines the domain models for the OIDC authorization protocol core.
// This file contains the AuthorizationRequest model and the response_type / response_mode helpers.
package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// AuthorizationRequest is the immutable, verified form of an inbound authorization request.
// It is created once by the request resolver and never mutated afterwards.
type AuthorizationRequest struct {
	// ID identifies the registered request; interactive flows resume from it.
	ID string `json:"id"`

	// TenantID identifies the tenant the request was received for.
	TenantID string `json:"tenant_id"`

	// Profile is the security profile derived from the requested scopes.
	Profile constants.AuthorizationProfile `json:"profile"`

	ClientID     string                 `json:"client_id"`
	ResponseType constants.ResponseType `json:"response_type"`
	ResponseMode constants.ResponseMode `json:"response_mode,omitempty"`
	Scopes       []string               `json:"scopes"`
	Claims       ClaimsRequest          `json:"claims"`

	// RedirectURI is empty when the client omitted it; the client's first registered URI applies then.
	RedirectURI string `json:"redirect_uri,omitempty"`

	State               string `json:"state,omitempty"`
	Nonce               string `json:"nonce,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`

	AuthorizationDetails   AuthorizationDetails `json:"authorization_details,omitempty"`
	PresentationDefinition json.RawMessage      `json:"presentation_definition,omitempty"`

	Prompts   []constants.Prompt `json:"prompts,omitempty"`
	MaxAge    *int64             `json:"max_age,omitempty"`
	LoginHint string             `json:"login_hint,omitempty"`
	ACRValues []string           `json:"acr_values,omitempty"`

	// RequestURI and RequestObject record how the request was delivered.
	RequestURI    string `json:"request_uri,omitempty"`
	RequestObject bool   `json:"request_object,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasPrompt reports whether the given prompt value was requested.
func (r *AuthorizationRequest) HasPrompt(p constants.Prompt) bool {
	for _, v := range r.Prompts {
		if v == p {
			return true
		}
	}
	return false
}

// IsPromptNone reports whether prompt=none was requested.
func (r *AuthorizationRequest) IsPromptNone() bool { return r.HasPrompt(constants.PromptNone) }

// IsPromptLogin reports whether prompt=login was requested.
func (r *AuthorizationRequest) IsPromptLogin() bool { return r.HasPrompt(constants.PromptLogin) }

func (r *AuthorizationRequest) HasRedirectURI() bool { return r.RedirectURI != "" }

func (r *AuthorizationRequest) HasNonce() bool { return r.Nonce != "" }

func (r *AuthorizationRequest) HasCodeChallenge() bool { return r.CodeChallenge != "" }

// IsOpenID reports whether the openid scope was requested.
func (r *AuthorizationRequest) IsOpenID() bool { return utils.Contains(r.Scopes, "openid") }

// ScopeValue returns the scopes as a space-delimited string.
func (r *AuthorizationRequest) ScopeValue() string { return strings.Join(r.Scopes, " ") }

// IsExpired reports whether the request can no longer be authorized.
func (r *AuthorizationRequest) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// IsFAPI reports whether a FAPI profile applies.
func (r *AuthorizationRequest) IsFAPI() bool {
	return r.Profile == constants.ProfileFAPIBaseline || r.Profile == constants.ProfileFAPIAdvance
}

// ClaimRequirement is a single member of the OIDC claims request parameter.
type ClaimRequirement struct {
	Essential bool          `json:"essential,omitempty"`
	Value     interface{}   `json:"value,omitempty"`
	Values    []interface{} `json:"values,omitempty"`
}

// ClaimsRequest is the parsed OIDC "claims" parameter.
type ClaimsRequest struct {
	UserInfo map[string]*ClaimRequirement `json:"userinfo,omitempty"`
	IDToken  map[string]*ClaimRequirement `json:"id_token,omitempty"`
}

// ParseClaimsRequest parses the JSON value of the claims parameter. An empty value yields an empty request.
func ParseClaimsRequest(raw string) (ClaimsRequest, error) {
	var c ClaimsRequest
	if strings.TrimSpace(raw) == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return ClaimsRequest{}, err
	}
	return c, nil
}

// IDTokenClaimNames returns the requested ID token claim names in sorted order.
func (c ClaimsRequest) IDTokenClaimNames() []string { return sortedKeys(c.IDToken) }

// UserInfoClaimNames returns the requested userinfo claim names in sorted order.
func (c ClaimsRequest) UserInfoClaimNames() []string { return sortedKeys(c.UserInfo) }

func (c ClaimsRequest) IsEmpty() bool { return len(c.IDToken) == 0 && len(c.UserInfo) == 0 }

func sortedKeys(m map[string]*ClaimRequirement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AuthorizationDetail is one entry of a RAR authorization_details array.
type AuthorizationDetail map[string]interface{}

// Type returns the mandatory "type" member.
func (d AuthorizationDetail) Type() string {
	t, _ := d["type"].(string)
	return t
}

// AuthorizationDetails is the parsed authorization_details parameter.
type AuthorizationDetails []AuthorizationDetail

// ParseAuthorizationDetails parses the JSON array value of the authorization_details parameter.
func ParseAuthorizationDetails(raw string) (AuthorizationDetails, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var d AuthorizationDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Types returns the distinct detail types in order of first appearance.
func (d AuthorizationDetails) Types() []string {
	types := make([]string, 0, len(d))
	for _, detail := range d {
		types = append(types, detail.Type())
	}
	return utils.SplitSpaceDelimited(strings.Join(types, " "))
}

// ================================================================================
// response_type
// ================================================================================

const (
	rtCode = 1 << iota
	rtToken
	rtIDToken
	rtVPToken
)

var responseTypeByMask = map[int]constants.ResponseType{
	rtCode:                      constants.ResponseTypeCode,
	rtToken:                     constants.ResponseTypeToken,
	rtIDToken:                   constants.ResponseTypeIDToken,
	rtCode | rtToken:            constants.ResponseTypeCodeToken,
	rtCode | rtIDToken:          constants.ResponseTypeCodeIDToken,
	rtToken | rtIDToken:         constants.ResponseTypeTokenIDToken,
	rtCode | rtToken | rtIDToken: constants.ResponseTypeCodeTokenIDToken,
	rtVPToken:                   constants.ResponseTypeVPToken,
	rtVPToken | rtIDToken:       constants.ResponseTypeVPTokenIDToken,
}

// ParseResponseType maps a raw, space-delimited response_type value to its canonical tag.
// Component order is irrelevant. An empty value yields ResponseTypeUndefined and anything
// outside the closed set yields ResponseTypeUnknown.
func ParseResponseType(raw string) constants.ResponseType {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return constants.ResponseTypeUndefined
	}
	if len(parts) == 1 && parts[0] == string(constants.ResponseTypeNone) {
		return constants.ResponseTypeNone
	}

	mask := 0
	for _, p := range parts {
		var bit int
		switch p {
		case "code":
			bit = rtCode
		case "token":
			bit = rtToken
		case "id_token":
			bit = rtIDToken
		case "vp_token":
			bit = rtVPToken
		default:
			return constants.ResponseTypeUnknown
		}
		if mask&bit != 0 {
			return constants.ResponseTypeUnknown
		}
		mask |= bit
	}

	if rt, ok := responseTypeByMask[mask]; ok {
		return rt
	}
	return constants.ResponseTypeUnknown
}

// ResponseTypeComponents returns the individual components of a canonical response type.
func ResponseTypeComponents(rt constants.ResponseType) []string {
	return strings.Fields(string(rt))
}

// IncludesCode reports whether the response type returns an authorization code.
func IncludesCode(rt constants.ResponseType) bool { return hasComponent(rt, "code") }

// IncludesAccessToken reports whether the response type returns an access token.
func IncludesAccessToken(rt constants.ResponseType) bool { return hasComponent(rt, "token") }

// IncludesIDToken reports whether the response type returns an ID token.
func IncludesIDToken(rt constants.ResponseType) bool { return hasComponent(rt, "id_token") }

// IncludesVPToken reports whether the response type returns a verifiable presentation.
func IncludesVPToken(rt constants.ResponseType) bool { return hasComponent(rt, "vp_token") }

func hasComponent(rt constants.ResponseType, component string) bool {
	for _, c := range ResponseTypeComponents(rt) {
		if c == component {
			return true
		}
	}
	return false
}

// IsKnownResponseType reports whether rt is one of the ten canonical response types.
func IsKnownResponseType(rt constants.ResponseType) bool {
	if rt == constants.ResponseTypeNone {
		return true
	}
	for _, v := range responseTypeByMask {
		if v == rt {
			return true
		}
	}
	return false
}

// DefaultDelimiter returns the delimiter used when no response mode is given:
// "?" for the pure code flow and for none, "#" for everything that carries a token.
func DefaultDelimiter(rt constants.ResponseType) string {
	if rt == constants.ResponseTypeCode || rt == constants.ResponseTypeNone {
		return constants.DelimiterQuery
	}
	return constants.DelimiterFragment
}

// ================================================================================
// response_mode
// ================================================================================

// ParseResponseMode maps the raw response_mode value. ok is false for values outside the known set.
func ParseResponseMode(raw string) (mode constants.ResponseMode, ok bool) {
	switch m := constants.ResponseMode(strings.TrimSpace(raw)); m {
	case constants.ResponseModeUndefined, constants.ResponseModeQuery, constants.ResponseModeFragment,
		constants.ResponseModeJWT, constants.ResponseModeQueryJWT, constants.ResponseModeFragmentJWT:
		return m, true
	default:
		return m, false
	}
}

// IsJWTResponseMode reports whether the mode requests a JWT-secured response.
func IsJWTResponseMode(m constants.ResponseMode) bool {
	return m == constants.ResponseModeJWT || m == constants.ResponseModeQueryJWT || m == constants.ResponseModeFragmentJWT
}

// ResponseModeDelimiter returns the delimiter a response mode pins, or "" when the mode leaves it to the response type.
func ResponseModeDelimiter(m constants.ResponseMode) string {
	switch m {
	case constants.ResponseModeQuery, constants.ResponseModeQueryJWT:
		return constants.DelimiterQuery
	case constants.ResponseModeFragment, constants.ResponseModeFragmentJWT:
		return constants.DelimiterFragment
	default:
		return ""
	}
}
