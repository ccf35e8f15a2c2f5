package models

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/oidc-core/pkg/constants"
)

// ResponseParam is one key/value pair of an encoded authorization response.
type ResponseParam struct {
	Key   string
	Value string
}

func encodeParams(params []ResponseParam) string {
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

func joinRedirect(redirectURI, delimiter, query string) string {
	if delimiter == constants.DelimiterQuery && strings.Contains(redirectURI, "?") {
		delimiter = "&"
	}
	return redirectURI + delimiter + query
}

// ================================================================================
// Authorization response
// ================================================================================

// AuthorizationResponse is an immutable successful authorization response. Build one with
// NewAuthorizationResponseBuilder.
type AuthorizationResponse struct {
	redirectURI  string
	delimiter    string
	responseMode constants.ResponseMode
	jarm         bool

	issuer      string
	state       string
	code        string
	accessToken string
	tokenType   constants.TokenType
	expiresIn   int64
	scope       string
	idToken     string
	vpToken     string
	response    string

	issuedAccessToken AccessToken
	params            []ResponseParam
}

func (r *AuthorizationResponse) RedirectURI() string                  { return r.redirectURI }
func (r *AuthorizationResponse) ResponseMode() constants.ResponseMode { return r.responseMode }
func (r *AuthorizationResponse) IsJARM() bool                         { return r.jarm }
func (r *AuthorizationResponse) Issuer() string                       { return r.issuer }
func (r *AuthorizationResponse) State() string                        { return r.state }
func (r *AuthorizationResponse) Code() string                         { return r.code }
func (r *AuthorizationResponse) AccessToken() string                  { return r.accessToken }
func (r *AuthorizationResponse) TokenType() constants.TokenType       { return r.tokenType }
func (r *AuthorizationResponse) ExpiresIn() int64                     { return r.expiresIn }
func (r *AuthorizationResponse) IDToken() string                      { return r.idToken }
func (r *AuthorizationResponse) VPToken() string                      { return r.vpToken }
func (r *AuthorizationResponse) Response() string                     { return r.response }

func (r *AuthorizationResponse) HasCode() bool        { return r.code != "" }
func (r *AuthorizationResponse) HasAccessToken() bool { return r.accessToken != "" }

// IssuedAccessToken returns the full access token behind the access_token parameter.
func (r *AuthorizationResponse) IssuedAccessToken() AccessToken { return r.issuedAccessToken }

// Params returns a copy of the encoded parameters in order.
func (r *AuthorizationResponse) Params() []ResponseParam {
	return append([]ResponseParam(nil), r.params...)
}

// QueryString returns the encoded parameters.
func (r *AuthorizationResponse) QueryString() string { return encodeParams(r.params) }

// RedirectURIValue returns the full URI the user agent is redirected to.
func (r *AuthorizationResponse) RedirectURIValue() string {
	return joinRedirect(r.redirectURI, r.delimiter, r.QueryString())
}

// JARMClaims returns the present response fields as JWT claims. expires_in stays numeric.
func (r *AuthorizationResponse) JARMClaims() map[string]interface{} {
	claims := make(map[string]interface{})
	for _, p := range r.plainParams() {
		if p.Key == "expires_in" {
			claims[p.Key] = r.expiresIn
			continue
		}
		claims[p.Key] = p.Value
	}
	return claims
}

// plainParams lists the present fields in response order: iss, state, code, access_token,
// token_type, expires_in, scope, id_token, vp_token.
func (r *AuthorizationResponse) plainParams() []ResponseParam {
	params := make([]ResponseParam, 0, 9)
	add := func(k, v string) {
		if v != "" {
			params = append(params, ResponseParam{Key: k, Value: v})
		}
	}
	add("iss", r.issuer)
	add("state", r.state)
	add("code", r.code)
	add("access_token", r.accessToken)
	if r.accessToken != "" {
		add("token_type", string(r.tokenType))
		if r.expiresIn > 0 {
			add("expires_in", strconv.FormatInt(r.expiresIn, 10))
		}
		add("scope", r.scope)
	}
	add("id_token", r.idToken)
	add("vp_token", r.vpToken)
	return params
}

// AuthorizationResponseBuilder assembles an AuthorizationResponse.
type AuthorizationResponseBuilder struct {
	r AuthorizationResponse
}

// NewAuthorizationResponseBuilder starts a response for the given redirect URI and delimiter.
func NewAuthorizationResponseBuilder(redirectURI, delimiter string, mode constants.ResponseMode, jarm bool) *AuthorizationResponseBuilder {
	return &AuthorizationResponseBuilder{r: AuthorizationResponse{
		redirectURI:  redirectURI,
		delimiter:    delimiter,
		responseMode: mode,
		jarm:         jarm,
	}}
}

func (b *AuthorizationResponseBuilder) Issuer(v string) *AuthorizationResponseBuilder {
	b.r.issuer = v
	return b
}

func (b *AuthorizationResponseBuilder) State(v string) *AuthorizationResponseBuilder {
	b.r.state = v
	return b
}

func (b *AuthorizationResponseBuilder) Code(v string) *AuthorizationResponseBuilder {
	b.r.code = v
	return b
}

// AccessToken sets the token together with its type, lifetime and scope.
func (b *AuthorizationResponseBuilder) AccessToken(token AccessToken, scope string) *AuthorizationResponseBuilder {
	b.r.issuedAccessToken = token
	b.r.accessToken = token.Value
	b.r.tokenType = token.TokenType
	if b.r.tokenType == "" {
		b.r.tokenType = constants.TokenTypeBearer
	}
	b.r.expiresIn = token.ExpiresIn()
	b.r.scope = scope
	return b
}

func (b *AuthorizationResponseBuilder) IDToken(v string) *AuthorizationResponseBuilder {
	b.r.idToken = v
	return b
}

func (b *AuthorizationResponseBuilder) VPToken(v string) *AuthorizationResponseBuilder {
	b.r.vpToken = v
	return b
}

// Response sets the JARM JWT. Once set, it is the only parameter of the built response.
func (b *AuthorizationResponseBuilder) Response(jwt string) *AuthorizationResponseBuilder {
	b.r.response = jwt
	return b
}

// Build returns the response. The builder may keep being used; earlier results are not affected.
func (b *AuthorizationResponseBuilder) Build() *AuthorizationResponse {
	out := b.r
	if out.response != "" {
		out.params = []ResponseParam{{Key: "response", Value: out.response}}
	} else {
		out.params = out.plainParams()
	}
	return &out
}

// ================================================================================
// Authorization error response
// ================================================================================

// AuthorizationErrorResponse is an immutable error response delivered to the client's redirect URI.
type AuthorizationErrorResponse struct {
	redirectURI      string
	delimiter        string
	responseMode     constants.ResponseMode
	jarm             bool
	issuer           string
	state            string
	errorCode        string
	errorDescription string
	response         string
	params           []ResponseParam
}

func (r *AuthorizationErrorResponse) RedirectURI() string      { return r.redirectURI }
func (r *AuthorizationErrorResponse) IsJARM() bool             { return r.jarm }
func (r *AuthorizationErrorResponse) Issuer() string           { return r.issuer }
func (r *AuthorizationErrorResponse) State() string            { return r.state }
func (r *AuthorizationErrorResponse) ErrorCode() string        { return r.errorCode }
func (r *AuthorizationErrorResponse) ErrorDescription() string { return r.errorDescription }
func (r *AuthorizationErrorResponse) Response() string         { return r.response }

func (r *AuthorizationErrorResponse) Params() []ResponseParam {
	return append([]ResponseParam(nil), r.params...)
}

func (r *AuthorizationErrorResponse) QueryString() string { return encodeParams(r.params) }

func (r *AuthorizationErrorResponse) RedirectURIValue() string {
	return joinRedirect(r.redirectURI, r.delimiter, r.QueryString())
}

// JARMClaims returns the present error fields as JWT claims.
func (r *AuthorizationErrorResponse) JARMClaims() map[string]interface{} {
	claims := make(map[string]interface{})
	for _, p := range r.plainParams() {
		claims[p.Key] = p.Value
	}
	return claims
}

func (r *AuthorizationErrorResponse) plainParams() []ResponseParam {
	params := make([]ResponseParam, 0, 4)
	add := func(k, v string) {
		if v != "" {
			params = append(params, ResponseParam{Key: k, Value: v})
		}
	}
	add("iss", r.issuer)
	add("state", r.state)
	add("error", r.errorCode)
	add("error_description", r.errorDescription)
	return params
}

// AuthorizationErrorResponseBuilder assembles an AuthorizationErrorResponse.
type AuthorizationErrorResponseBuilder struct {
	r AuthorizationErrorResponse
}

func NewAuthorizationErrorResponseBuilder(redirectURI, delimiter string, mode constants.ResponseMode, jarm bool) *AuthorizationErrorResponseBuilder {
	return &AuthorizationErrorResponseBuilder{r: AuthorizationErrorResponse{
		redirectURI:  redirectURI,
		delimiter:    delimiter,
		responseMode: mode,
		jarm:         jarm,
	}}
}

func (b *AuthorizationErrorResponseBuilder) Issuer(v string) *AuthorizationErrorResponseBuilder {
	b.r.issuer = v
	return b
}

func (b *AuthorizationErrorResponseBuilder) State(v string) *AuthorizationErrorResponseBuilder {
	b.r.state = v
	return b
}

func (b *AuthorizationErrorResponseBuilder) Error(code, description string) *AuthorizationErrorResponseBuilder {
	b.r.errorCode = code
	b.r.errorDescription = description
	return b
}

func (b *AuthorizationErrorResponseBuilder) Response(jwt string) *AuthorizationErrorResponseBuilder {
	b.r.response = jwt
	return b
}

func (b *AuthorizationErrorResponseBuilder) Build() *AuthorizationErrorResponse {
	out := b.r
	if out.response != "" {
		out.params = []ResponseParam{{Key: "response", Value: out.response}}
	} else {
		out.params = out.plainParams()
	}
	return &out
}
