package crypto

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// StaticKeySource serves keys declared in the configuration file.
type StaticKeySource struct {
	keys map[string]*KeyPair
}

// NewStaticKeySource parses every configured key up front so a broken PEM fails at startup.
func NewStaticKeySource(cfg config.KeysConfig) (*StaticKeySource, error) {
	keys := make(map[string]*KeyPair, len(cfg.Static))
	for _, k := range cfg.Static {
		pemData := []byte(k.PrivateKeyPEM)
		if len(pemData) == 0 && k.PrivateKeyFile != "" {
			data, err := os.ReadFile(k.PrivateKeyFile)
			if err != nil {
				return nil, fmt.Errorf("read key file of tenant %s: %w", k.TenantID, err)
			}
			pemData = data
		}
		signer, err := ParsePrivateKeyPEM(pemData, k.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("parse key %s of tenant %s: %w", k.KeyID, k.TenantID, err)
		}
		keys[k.TenantID] = &KeyPair{
			KeyID:     k.KeyID,
			TenantID:  k.TenantID,
			Algorithm: k.Algorithm,
			Private:   signer,
			LoadedAt:  time.Now().UTC(),
		}
	}
	return &StaticKeySource{keys: keys}, nil
}

func (s *StaticKeySource) LoadKey(_ context.Context, tenantID string) (*KeyPair, error) {
	key, ok := s.keys[tenantID]
	if !ok {
		return nil, errors.ErrSigningKeyNotFound(tenantID)
	}
	return key, nil
}

// NewKeySource selects Vault when it is enabled and the static PEM keys otherwise.
func NewKeySource(cfg *config.Config, log logger.Logger) (KeySource, error) {
	if cfg.Vault.Enabled {
		client, err := NewVaultClient(&cfg.Vault, log)
		if err != nil {
			return nil, err
		}
		return NewVaultKeySource(client, cfg.Vault.KeyPath), nil
	}
	if len(cfg.Keys.Static) == 0 {
		return nil, fmt.Errorf("no signing keys configured: enable vault or list keys.static")
	}
	static, err := NewStaticKeySource(cfg.Keys)
	if err != nil {
		return nil, err
	}
	return static, nil
}
