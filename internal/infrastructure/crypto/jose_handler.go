package crypto

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// asymmetricAlgorithms are accepted for request objects and received logout tokens.
var asymmetricAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"}

var symmetricAlgorithms = []string{"HS256", "HS384", "HS512"}

// requestObjectLeeway tolerates clock skew on request object exp/nbf/iat.
const requestObjectLeeway = 30 * time.Second

// JoseHandler implements service.JoseHandler with golang-jwt for JWS and jwx for key sets.
type JoseHandler struct {
	keys   *KeyManager
	logger logger.Logger
}

func NewJoseHandler(keys *KeyManager, log logger.Logger) *JoseHandler {
	return &JoseHandler{keys: keys, logger: log.WithComponent("JoseHandler")}
}

// ParseRequestObject verifies a request object. Unsigned (alg=none) objects are accepted only from
// clients registered for them; they come back with SignatureVerified=false and still go through
// the time claim checks and the caller's profile rules.
func (h *JoseHandler) ParseRequestObject(ctx context.Context, raw string, server *models.ServerConfiguration, client *models.ClientConfiguration) (*models.JoseContext, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, errors.ErrInvalidRequestObject("request object is not a JWT").WithCause(err)
	}
	alg, _ := unverified.Header["alg"].(string)
	kid, _ := unverified.Header["kid"].(string)

	jose := &models.JoseContext{
		Header:    unverified.Header,
		Algorithm: alg,
		KeyID:     kid,
		Raw:       raw,
	}

	if strings.EqualFold(alg, "none") {
		if !client.AllowUnsignedRequestObject {
			h.logger.Warn(ctx, "unsigned request object from client not registered for it",
				logger.String("client_id", client.ClientID))
			return nil, errors.ErrInvalidRequestObject("client is not allowed to send unsigned request objects")
		}
		claims := unverified.Claims.(jwt.MapClaims)
		if err := jwt.NewValidator(jwt.WithLeeway(requestObjectLeeway)).Validate(claims); err != nil {
			return nil, errors.ErrInvalidRequestObject("request object is expired or not yet valid").WithCause(err)
		}
		jose.Claims = map[string]interface{}(claims)
		return jose, nil
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if strings.HasPrefix(t.Method.Alg(), "HS") {
			if client.ClientSecret == "" {
				return nil, fmt.Errorf("client has no secret for %s", t.Method.Alg())
			}
			return []byte(client.ClientSecret), nil
		}
		if key, err := lookupPublicKey(client.JWKS, kid); err == nil {
			return key, nil
		}
		return lookupPublicKey(server.JWKS, kid)
	},
		jwt.WithValidMethods(append(append([]string{}, asymmetricAlgorithms...), symmetricAlgorithms...)),
		jwt.WithLeeway(requestObjectLeeway),
	)
	if err != nil {
		return nil, errors.ErrInvalidRequestObject("request object signature is invalid").WithCause(err)
	}

	jose.Claims = map[string]interface{}(token.Claims.(jwt.MapClaims))
	jose.SignatureVerified = true
	return jose, nil
}

// SigningAlgorithm returns the algorithm of the tenant's active key.
func (h *JoseHandler) SigningAlgorithm(ctx context.Context, server *models.ServerConfiguration) (string, error) {
	key, err := h.activeKey(ctx, server)
	if err != nil {
		return "", err
	}
	return key.Algorithm, nil
}

// Sign signs claims with the tenant's current key.
func (h *JoseHandler) Sign(ctx context.Context, server *models.ServerConfiguration, claims map[string]interface{}, typ string) (string, error) {
	key, err := h.activeKey(ctx, server)
	if err != nil {
		return "", err
	}
	method := jwt.GetSigningMethod(key.Algorithm)
	if method == nil {
		return "", errors.ErrServerError("unsupported signing algorithm " + key.Algorithm)
	}

	token := jwt.NewWithClaims(method, jwt.MapClaims(claims))
	token.Header["kid"] = key.KeyID
	if typ != "" {
		token.Header["typ"] = typ
	}

	signed, err := token.SignedString(key.Private)
	if err != nil {
		h.logger.Error(ctx, "failed to sign JWT", err, logger.String("tenant_id", server.TenantID))
		return "", errors.WrapError(err, constants.ErrCodeServerError, "failed to sign JWT")
	}
	return signed, nil
}

// activeKey loads the tenant key and refuses it when the tenant pins a different algorithm.
func (h *JoseHandler) activeKey(ctx context.Context, server *models.ServerConfiguration) (*KeyPair, error) {
	key, err := h.keys.GetActiveKeyForTenant(ctx, server.TenantID)
	if err != nil {
		return nil, err
	}
	if server.SigningAlgorithm != "" && server.SigningAlgorithm != key.Algorithm {
		mismatch := errors.ErrServerError(fmt.Sprintf("tenant %s pins %s but its key is %s",
			server.TenantID, server.SigningAlgorithm, key.Algorithm))
		h.logger.Error(ctx, "configured signing algorithm differs from key algorithm", mismatch,
			logger.String("tenant_id", server.TenantID))
		return nil, mismatch
	}
	return key, nil
}

// Verify checks the signature of raw against jwks. Claim validation is left to the caller.
func (h *JoseHandler) Verify(ctx context.Context, raw string, jwks string) (map[string]interface{}, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return lookupPublicKey(jwks, kid)
	},
		jwt.WithValidMethods(asymmetricAlgorithms),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify JWT: %w", err)
	}
	return map[string]interface{}(token.Claims.(jwt.MapClaims)), nil
}

// lookupPublicKey finds the key with kid in a JWKS document. Without a kid the set must hold
// exactly one key.
func lookupPublicKey(jwks, kid string) (interface{}, error) {
	if strings.TrimSpace(jwks) == "" {
		return nil, fmt.Errorf("no JWKS registered")
	}
	set, err := jwk.Parse([]byte(jwks))
	if err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}

	var key jwk.Key
	if kid != "" {
		k, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("kid %q not found in JWKS", kid)
		}
		key = k
	} else {
		if set.Len() != 1 {
			return nil, fmt.Errorf("JWT has no kid and JWKS holds %d keys", set.Len())
		}
		key, _ = set.Key(0)
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("extract key %q: %w", kid, err)
	}
	return raw, nil
}
