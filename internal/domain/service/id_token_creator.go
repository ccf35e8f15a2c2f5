package service

import (
	"context"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// scopeClaims are the standard claims released by each OIDC scope.
var scopeClaims = map[string][]string{
	"profile": {"name", "given_name", "family_name", "preferred_username", "locale"},
	"email":   {"email", "email_verified"},
	"phone":   {"phone_number"},
}

// JWTIDTokenCreator issues signed ID tokens with the hybrid-flow hash claims.
type JWTIDTokenCreator struct {
	jose JoseHandler
	now  func() time.Time
}

func NewJWTIDTokenCreator(jose JoseHandler) *JWTIDTokenCreator {
	return &JWTIDTokenCreator{jose: jose, now: time.Now}
}

// Create signs an ID token. c_hash and at_hash bind the code and access token returned alongside;
// s_hash binds the state under FAPI.
func (c *JWTIDTokenCreator) Create(ctx context.Context, authorize *models.OAuthAuthorizeContext, custom models.IDTokenCustomClaims) (string, error) {
	reqCtx := authorize.RequestContext
	server := reqCtx.Server
	request := reqCtx.Request
	now := c.now()

	claims := map[string]interface{}{
		"iss": server.TokenIssuer,
		"sub": authorize.User.Subject,
		"aud": reqCtx.ClientID(),
		"iat": now.Unix(),
		"exp": now.Add(server.IDTokenLifetime()).Unix(),
	}
	if authorize.Authentication.Exists() {
		claims["auth_time"] = authorize.Authentication.Time.Unix()
	}
	if len(authorize.Authentication.Methods) > 0 {
		claims["amr"] = authorize.Authentication.Methods
	}
	if authorize.Authentication.ACR != "" {
		claims["acr"] = authorize.Authentication.ACR
	}
	if request != nil && request.HasNonce() {
		claims["nonce"] = request.Nonce
	}
	if authorize.SessionID != "" {
		claims["sid"] = authorize.SessionID
	}
	hashes := map[string]string{}
	if custom.Code != "" {
		hashes["c_hash"] = custom.Code
	}
	if custom.AccessToken != "" {
		hashes["at_hash"] = custom.AccessToken
	}
	if custom.State != "" && request != nil && request.IsFAPI() {
		hashes["s_hash"] = custom.State
	}
	if len(hashes) > 0 {
		// the hash follows the algorithm of the key that signs, whatever the tenant declares
		alg, err := c.jose.SigningAlgorithm(ctx, server)
		if err != nil {
			return "", err
		}
		for name, value := range hashes {
			claims[name] = utils.LeftHalfHash(value, alg)
		}
	}

	for _, name := range c.releasedClaims(request) {
		if _, reserved := claims[name]; reserved {
			continue
		}
		if v, ok := authorize.User.ClaimValue(name); ok {
			claims[name] = v
		}
	}

	return c.jose.Sign(ctx, server, claims, "")
}

// releasedClaims lists the user claims to embed: the explicitly requested id_token claims and,
// when no access token is issued, the claims implied by the requested scopes.
func (c *JWTIDTokenCreator) releasedClaims(request *models.AuthorizationRequest) []string {
	if request == nil {
		return nil
	}
	names := request.Claims.IDTokenClaimNames()
	if request.ResponseType == constants.ResponseTypeIDToken {
		for _, scope := range request.Scopes {
			names = utils.Union(names, scopeClaims[scope])
		}
	}
	return names
}
