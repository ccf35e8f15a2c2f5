package crypto

import (
	"context"
	stderrors "errors"
	"path"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// VaultClient reads and writes KVv2 secrets.
type VaultClient interface {
	GetKey(ctx context.Context, keyPath string) (map[string]interface{}, error)
	SaveKey(ctx context.Context, keyPath string, data map[string]interface{}) error
}

type vaultClientImpl struct {
	client    *vault.Client
	log       logger.Logger
	mountPath string
}

// NewVaultClient creates and configures a new Vault client.
func NewVaultClient(cfg *config.VaultConfig, log logger.Logger) (VaultClient, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, err
	}
	client.SetToken(cfg.Token)

	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}
	return &vaultClientImpl{
		client:    client,
		log:       log.WithComponent("VaultClient"),
		mountPath: mount,
	}, nil
}

func (v *vaultClientImpl) GetKey(ctx context.Context, keyPath string) (map[string]interface{}, error) {
	secret, err := v.client.KVv2(v.mountPath).Get(ctx, keyPath)
	if err != nil {
		if stderrors.Is(err, vault.ErrSecretNotFound) {
			return nil, errors.ErrNotFound("secret " + keyPath + " not found")
		}
		v.log.Error(ctx, "vault read failed", err, logger.String("path", keyPath))
		return nil, errors.WrapError(err, constants.ErrCodeServerError, "vault read failed")
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.ErrNotFound("secret " + keyPath + " not found")
	}
	return secret.Data, nil
}

func (v *vaultClientImpl) SaveKey(ctx context.Context, keyPath string, data map[string]interface{}) error {
	if _, err := v.client.KVv2(v.mountPath).Put(ctx, keyPath, data); err != nil {
		return errors.WrapError(err, constants.ErrCodeServerError, "vault write failed")
	}
	return nil
}

// VaultKeySource reads PEM signing keys stored under <keyPath>/<tenantID> with the fields
// private_key, kid and alg.
type VaultKeySource struct {
	client  VaultClient
	keyPath string
}

func NewVaultKeySource(client VaultClient, keyPath string) *VaultKeySource {
	return &VaultKeySource{client: client, keyPath: keyPath}
}

func (s *VaultKeySource) LoadKey(ctx context.Context, tenantID string) (*KeyPair, error) {
	data, err := s.client.GetKey(ctx, path.Join(s.keyPath, tenantID))
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.ErrSigningKeyNotFound(tenantID)
		}
		return nil, err
	}

	pemData, _ := data["private_key"].(string)
	kid, _ := data["kid"].(string)
	alg, _ := data["alg"].(string)
	if pemData == "" || kid == "" {
		return nil, errors.ErrSigningKeyNotFound(tenantID).WithMetadata("reason", "incomplete vault secret")
	}
	if alg == "" {
		alg = "RS256"
	}

	signer, err := ParsePrivateKeyPEM([]byte(pemData), alg)
	if err != nil {
		return nil, errors.WrapError(err, constants.ErrCodeServerError, "invalid signing key in vault")
	}
	return &KeyPair{
		KeyID:     kid,
		TenantID:  tenantID,
		Algorithm: alg,
		Private:   signer,
		LoadedAt:  time.Now().UTC(),
	}, nil
}
