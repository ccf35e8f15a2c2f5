// Package constants defines system-wide constants for the OIDC protocol core.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Response Type Constants
// ================================================================================

// ResponseType is the canonical tag of an OAuth 2.0 / OIDC response_type combination.
// The raw parameter is space-delimited and order-insensitive; see models.ParseResponseType.
type ResponseType string

const (
	ResponseTypeCode             ResponseType = "code"
	ResponseTypeToken            ResponseType = "token"
	ResponseTypeIDToken          ResponseType = "id_token"
	ResponseTypeCodeToken        ResponseType = "code token"
	ResponseTypeCodeIDToken      ResponseType = "code id_token"
	ResponseTypeTokenIDToken     ResponseType = "token id_token"
	ResponseTypeCodeTokenIDToken ResponseType = "code token id_token"
	ResponseTypeVPToken          ResponseType = "vp_token"
	ResponseTypeVPTokenIDToken   ResponseType = "vp_token id_token"
	ResponseTypeNone             ResponseType = "none"
	ResponseTypeUndefined        ResponseType = ""
	ResponseTypeUnknown          ResponseType = "unknown"
)

// ================================================================================
// Response Mode Constants
// ================================================================================

// ResponseMode represents the response_mode authorization parameter.
type ResponseMode string

const (
	ResponseModeUndefined   ResponseMode = ""
	ResponseModeQuery       ResponseMode = "query"
	ResponseModeFragment    ResponseMode = "fragment"
	ResponseModeJWT         ResponseMode = "jwt"
	ResponseModeQueryJWT    ResponseMode = "query.jwt"
	ResponseModeFragmentJWT ResponseMode = "fragment.jwt"
)

// Response delimiters placed between the redirect URI and the encoded parameters.
const (
	DelimiterQuery    = "?"
	DelimiterFragment = "#"
)

// ================================================================================
// Prompt Constants
// ================================================================================

// Prompt represents a single value of the prompt authorization parameter.
type Prompt string

const (
	PromptNone          Prompt = "none"
	PromptLogin         Prompt = "login"
	PromptConsent       Prompt = "consent"
	PromptSelectAccount Prompt = "select_account"
	PromptCreate        Prompt = "create"
)

// ================================================================================
// Request Pattern Constants
// ================================================================================

// RequestPattern identifies how the authorization request was delivered.
type RequestPattern string

const (
	// RequestPatternNormal is a plain query-parameter request
	RequestPatternNormal RequestPattern = "normal"

	// RequestPatternRequestObject carries the request object by value in the "request" parameter
	RequestPatternRequestObject RequestPattern = "request_object"

	// RequestPatternRequestURI carries the request object by reference in the "request_uri" parameter
	RequestPatternRequestURI RequestPattern = "request_uri"
)

// ================================================================================
// Authorization Profile Constants
// ================================================================================

// AuthorizationProfile identifies the security profile applied to a request.
type AuthorizationProfile string

const (
	ProfileOAuth2       AuthorizationProfile = "oauth2"
	ProfileOIDC         AuthorizationProfile = "oidc"
	ProfileFAPIBaseline AuthorizationProfile = "fapi_baseline"
	ProfileFAPIAdvance  AuthorizationProfile = "fapi_advance"
)

// ================================================================================
// Token Type Constants
// ================================================================================

// TokenType represents the type of an issued token
type TokenType string

const (
	// TokenTypeBearer represents the Bearer token type for HTTP Authorization header
	TokenTypeBearer TokenType = "Bearer"

	// TokenTypeDPoP represents a DPoP-bound token
	TokenTypeDPoP TokenType = "DPoP"
)

// ================================================================================
// OAuth 2.0 / OIDC Error Code Constants
// ================================================================================

// ErrorCode represents standard OAuth 2.0 and OpenID Connect error codes
type ErrorCode string

const (
	ErrCodeInvalidRequest              ErrorCode = "invalid_request"
	ErrCodeInvalidClient               ErrorCode = "invalid_client"
	ErrCodeInvalidGrant                ErrorCode = "invalid_grant"
	ErrCodeUnauthorizedClient          ErrorCode = "unauthorized_client"
	ErrCodeAccessDenied                ErrorCode = "access_denied"
	ErrCodeUnsupportedResponseType     ErrorCode = "unsupported_response_type"
	ErrCodeInvalidScope                ErrorCode = "invalid_scope"
	ErrCodeServerError                 ErrorCode = "server_error"
	ErrCodeTemporarilyUnavailable      ErrorCode = "temporarily_unavailable"
	ErrCodeInteractionRequired         ErrorCode = "interaction_required"
	ErrCodeLoginRequired               ErrorCode = "login_required"
	ErrCodeAccountSelectionRequired    ErrorCode = "account_selection_required"
	ErrCodeConsentRequired             ErrorCode = "consent_required"
	ErrCodeInvalidRequestURI           ErrorCode = "invalid_request_uri"
	ErrCodeInvalidRequestObject        ErrorCode = "invalid_request_object"
	ErrCodeRequestNotSupported         ErrorCode = "request_not_supported"
	ErrCodeRequestURINotSupported      ErrorCode = "request_uri_not_supported"
	ErrCodeInvalidAuthorizationDetails ErrorCode = "invalid_authorization_details"
	ErrCodeNotFound                    ErrorCode = "not_found"
	ErrCodeConfigurationNotFound       ErrorCode = "configuration_not_found"
)

// ================================================================================
// Logout Constants
// ================================================================================

const (
	// BackChannelLogoutEvent is the member of the "events" claim identifying a logout token.
	BackChannelLogoutEvent = "http://schemas.openid.net/event/backchannel-logout"

	// LogoutTokenType is the typ header recommended for logout tokens.
	LogoutTokenType = "logout+jwt"

	// BackChannelLogoutTimeout is the default per-call timeout for back-channel delivery.
	BackChannelLogoutTimeout = 5000 * time.Millisecond

	// LogoutTokenJTITTL bounds how long a delivered logout token jti is remembered.
	LogoutTokenJTITTL = 120 * time.Second

	// LogoutTokenLifetime is the exp distance of generated logout tokens.
	LogoutTokenLifetime = 120 * time.Second
)

// LogoutChannel identifies the delivery mechanism of a logout notification.
type LogoutChannel string

const (
	LogoutChannelBack  LogoutChannel = "back_channel"
	LogoutChannelFront LogoutChannel = "front_channel"
)

// LogoutNotificationStatus is the delivery state of a logout notification.
type LogoutNotificationStatus string

const (
	LogoutStatusPending LogoutNotificationStatus = "pending"
	LogoutStatusSuccess LogoutNotificationStatus = "success"
	LogoutStatusFailed  LogoutNotificationStatus = "failed"
	LogoutStatusTimeout LogoutNotificationStatus = "timeout"
)

// Logout token validation failure codes.
const (
	LogoutErrInvalidToken    = "invalid_token"
	LogoutErrInvalidIssuer   = "invalid_issuer"
	LogoutErrInvalidAudience = "invalid_audience"
	LogoutErrReplayAttack    = "replay_attack"
)

// ================================================================================
// Lifetime Constants
// ================================================================================

const (
	// AuthorizationCodeDefaultTTL is the default lifetime of an authorization code (10 minutes)
	AuthorizationCodeDefaultTTL = 10 * time.Minute

	// AuthorizationRequestDefaultTTL bounds how long a registered request can be authorized
	AuthorizationRequestDefaultTTL = 30 * time.Minute

	// AuthorizationResponseDefaultTTL is the exp distance of JARM responses
	AuthorizationResponseDefaultTTL = 60 * time.Second

	// AccessTokenDefaultTTL is the default lifetime for access tokens (1 hour)
	AccessTokenDefaultTTL = 1 * time.Hour

	// IDTokenDefaultTTL is the default lifetime for ID tokens (1 hour)
	IDTokenDefaultTTL = 1 * time.Hour

	// OAuthSessionDefaultTTL is the default lifetime of a client session (24 hours)
	OAuthSessionDefaultTTL = 24 * time.Hour

	// ConfigurationCacheTTL is the L1 cache lifetime of tenant and client configurations
	ConfigurationCacheTTL = 5 * time.Minute

	// AuthorizationCodeLength is the minimum length of generated authorization codes
	AuthorizationCodeLength = 32
)

// ================================================================================
// Cache Key Prefix Constants
// ================================================================================

const (
	CacheKeyPrefixOAuthSession    = "oauth_session:"
	CacheKeyPrefixOPSession       = "op_session:"
	CacheKeyPrefixLogoutJTI       = "logout_jti:"
	CacheKeyPrefixUpstreamSession = "upstream_session:"
	CacheKeyPrefixServerConfig    = "server_config:"
	CacheKeyPrefixClientConfig    = "client_config:"
)

// ================================================================================
// Context Key Constants
// ================================================================================

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTenantID  ContextKey = "tenant_id"
	ContextKeyClientID  ContextKey = "client_id"
	ContextKeyTraceID   ContextKey = "trace_id"
)

// ================================================================================
// Log Level Constants
// ================================================================================

// LogLevel represents logging severity levels
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// ================================================================================
// Audit Event Type Constants
// ================================================================================

// AuditEventType represents different types of auditable events
type AuditEventType string

const (
	AuditEventAuthorizationIssued AuditEventType = "authorization_issued"
	AuditEventAuthorizationDenied AuditEventType = "authorization_denied"
	AuditEventLogoutNotification  AuditEventType = "logout_notification"
	AuditEventLogoutTokenReceived AuditEventType = "logout_token_received"
)

// ================================================================================
// Service Metadata
// ================================================================================

const (
	ServiceName = "oidc-core"
	APIVersion  = "v1"
)
