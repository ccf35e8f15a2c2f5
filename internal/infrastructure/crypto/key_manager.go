// Package crypto provides tenant signing keys and the JOSE operations built on them:
// request object verification, JWT signing and JWKS publication.
package crypto

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// KeyPair is a tenant's signing key.
type KeyPair struct {
	KeyID     string
	TenantID  string
	Algorithm string
	Private   crypto.Signer
	LoadedAt  time.Time
}

// Public returns the verification half of the key.
func (k *KeyPair) Public() crypto.PublicKey {
	return k.Private.Public()
}

// KeySource loads the current signing key of a tenant.
type KeySource interface {
	// LoadKey returns the key, or a signing_key_not_found CBCError when the tenant has none.
	LoadKey(ctx context.Context, tenantID string) (*KeyPair, error)
}

// KeyManager resolves tenant signing keys through a KeySource and keeps them in memory for cacheTTL.
type KeyManager struct {
	source KeySource
	cache  *gocache.Cache
	logger logger.Logger
}

// NewKeyManager creates a key manager. A non-positive cacheTTL keeps keys until InvalidateCache.
func NewKeyManager(source KeySource, cacheTTL time.Duration, log logger.Logger) *KeyManager {
	expiration := cacheTTL
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	return &KeyManager{
		source: source,
		cache:  gocache.New(expiration, 10*time.Minute),
		logger: log.WithComponent("KeyManager"),
	}
}

// GetActiveKeyForTenant returns the signing key of the tenant.
func (km *KeyManager) GetActiveKeyForTenant(ctx context.Context, tenantID string) (*KeyPair, error) {
	if cached, ok := km.cache.Get(tenantID); ok {
		return cached.(*KeyPair), nil
	}

	key, err := km.source.LoadKey(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	km.cache.SetDefault(tenantID, key)
	km.logger.Info(ctx, "signing key loaded",
		logger.String("tenant_id", tenantID),
		logger.String("kid", key.KeyID),
		logger.String("alg", key.Algorithm))
	return key, nil
}

// PublicJWKS renders the tenant's verification key as a JSON Web Key Set.
func (km *KeyManager) PublicJWKS(ctx context.Context, tenantID string) (string, error) {
	key, err := km.GetActiveKeyForTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
	pub, err := jwk.FromRaw(key.Public())
	if err != nil {
		return "", errors.WrapError(err, constants.ErrCodeServerError, "failed to convert public key")
	}
	if err := pub.Set(jwk.KeyIDKey, key.KeyID); err != nil {
		return "", err
	}
	if err := pub.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(key.Algorithm)); err != nil {
		return "", err
	}
	if err := pub.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return "", err
	}

	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		return "", err
	}
	buf, err := json.Marshal(set)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// InvalidateCache drops the cached key of the tenant so the next use reloads it.
func (km *KeyManager) InvalidateCache(tenantID string) {
	km.cache.Delete(tenantID)
}

// ParsePrivateKeyPEM parses a PEM private key matching the JWS algorithm family.
func ParsePrivateKeyPEM(pemData []byte, alg string) (crypto.Signer, error) {
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
		if err != nil {
			return nil, err
		}
		return key, nil
	case strings.HasPrefix(alg, "ES"):
		key, err := jwt.ParseECPrivateKeyFromPEM(pemData)
		if err != nil {
			return nil, err
		}
		return key, nil
	case alg == "EdDSA":
		key, err := jwt.ParseEdPrivateKeyFromPEM(pemData)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("ed25519 key is not a signer")
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}
