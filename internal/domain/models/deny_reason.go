package models

import "github.com/turtacn/oidc-core/pkg/constants"

// DenyReason is the closed set of reasons an authorization request can be denied with.
type DenyReason string

const (
	DenyReasonAccessDenied             DenyReason = "access_denied"
	DenyReasonConsentRequired          DenyReason = "consent_required"
	DenyReasonLoginRequired            DenyReason = "login_required"
	DenyReasonInteractionRequired      DenyReason = "interaction_required"
	DenyReasonAccountSelectionRequired DenyReason = "account_selection_required"
)

var denyReasonDescriptions = map[DenyReason]string{
	DenyReasonAccessDenied:             "The resource owner or authorization server denied the request.",
	DenyReasonConsentRequired:          "The authorization server requires end-user consent.",
	DenyReasonLoginRequired:            "The authorization server requires end-user authentication.",
	DenyReasonInteractionRequired:      "The authorization server requires end-user interaction of some form to proceed.",
	DenyReasonAccountSelectionRequired: "The end-user is required to select a session at the authorization server.",
}

// ParseDenyReason maps a raw value; an empty value defaults to access_denied.
func ParseDenyReason(raw string) (DenyReason, bool) {
	if raw == "" {
		return DenyReasonAccessDenied, true
	}
	r := DenyReason(raw)
	_, ok := denyReasonDescriptions[r]
	return r, ok
}

// ErrorCode returns the OAuth error code sent for the reason.
func (r DenyReason) ErrorCode() constants.ErrorCode { return constants.ErrorCode(r) }

// Description returns the fixed error_description sent for the reason.
func (r DenyReason) Description() string { return denyReasonDescriptions[r] }

func (r DenyReason) Valid() bool {
	_, ok := denyReasonDescriptions[r]
	return ok
}
