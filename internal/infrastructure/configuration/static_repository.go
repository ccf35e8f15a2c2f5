// Package configuration serves tenant and client metadata to the protocol core. Definitions
// come from the service configuration and are swapped atomically when the file is reloaded.
package configuration

import (
	"context"
	"sync"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/errors"
)

type tenantEntry struct {
	server  *models.ServerConfiguration
	clients map[string]*models.ClientConfiguration
}

// StaticStore holds the converted tenant definitions.
type StaticStore struct {
	mu      sync.RWMutex
	tenants map[string]tenantEntry
}

func NewStaticStore(cfg *config.Config) *StaticStore {
	s := &StaticStore{}
	s.Reload(cfg)
	return s
}

// Reload replaces every tenant definition with the ones in cfg.
func (s *StaticStore) Reload(cfg *config.Config) {
	tenants := make(map[string]tenantEntry, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		entry := tenantEntry{
			server:  t.ServerConfiguration(cfg.Authorization),
			clients: make(map[string]*models.ClientConfiguration, len(t.Clients)),
		}
		for _, c := range t.Clients {
			entry.clients[c.ClientID] = c.ClientConfiguration(t.ID)
		}
		tenants[t.ID] = entry
	}

	s.mu.Lock()
	s.tenants = tenants
	s.mu.Unlock()
}

// TenantIDs lists the configured tenants.
func (s *StaticStore) TenantIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	return ids
}

func (s *StaticStore) server(tenantID string) (*models.ServerConfiguration, error) {
	s.mu.RLock()
	entry, ok := s.tenants[tenantID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrConfigurationNotFound("server", tenantID)
	}
	cp := *entry.server
	return &cp, nil
}

func (s *StaticStore) client(tenantID, clientID string) (*models.ClientConfiguration, error) {
	s.mu.RLock()
	entry, ok := s.tenants[tenantID]
	var client *models.ClientConfiguration
	if ok {
		client, ok = entry.clients[clientID]
	}
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrConfigurationNotFound("client", clientID)
	}
	cp := *client
	return &cp, nil
}

// ServerRepository exposes the store as a ServerConfigurationRepository.
func (s *StaticStore) ServerRepository() repository.ServerConfigurationRepository {
	return serverRepository{s}
}

// ClientRepository exposes the store as a ClientConfigurationRepository.
func (s *StaticStore) ClientRepository() repository.ClientConfigurationRepository {
	return clientRepository{s}
}

type serverRepository struct{ store *StaticStore }

func (r serverRepository) Get(_ context.Context, tenantID string) (*models.ServerConfiguration, error) {
	return r.store.server(tenantID)
}

type clientRepository struct{ store *StaticStore }

func (r clientRepository) Get(_ context.Context, tenantID, clientID string) (*models.ClientConfiguration, error) {
	return r.store.client(tenantID, clientID)
}
