package models

import "strings"

// JoseContext is a parsed request object. It is empty for requests delivered as plain query parameters.
type JoseContext struct {
	Header            map[string]interface{} `json:"header,omitempty"`
	Claims            map[string]interface{} `json:"claims,omitempty"`
	Algorithm         string                 `json:"alg,omitempty"`
	KeyID             string                 `json:"kid,omitempty"`
	SignatureVerified bool                   `json:"signature_verified"`
	Raw               string                 `json:"-"`
}

// Exists reports whether a request object was present.
func (j *JoseContext) Exists() bool {
	return j != nil && j.Raw != ""
}

// IsUnsigned reports whether the request object used alg=none.
func (j *JoseContext) IsUnsigned() bool {
	return j.Exists() && strings.EqualFold(j.Algorithm, "none")
}

// IsSymmetric reports whether the request object was MACed with the client secret.
func (j *JoseContext) IsSymmetric() bool {
	return j.Exists() && strings.HasPrefix(j.Algorithm, "HS")
}

// HasClaim reports whether the claim is present in the request object.
func (j *JoseContext) HasClaim(name string) bool {
	if !j.Exists() {
		return false
	}
	_, ok := j.Claims[name]
	return ok
}

// ClaimString returns a string claim, or "" when absent or not a string.
func (j *JoseContext) ClaimString(name string) string {
	if !j.Exists() {
		return ""
	}
	s, _ := j.Claims[name].(string)
	return s
}
