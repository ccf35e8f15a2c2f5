// Package repository defines the domain repository interfaces.
// Repository interfaces follow DDD: they describe persistence contracts for domain objects
// and are implemented under internal/infrastructure.
package repository

import (
	"context"

	"github.com/turtacn/oidc-core/internal/domain/models"
)

// ServerConfigurationRepository provides per-tenant authorization server metadata.
// Implementation: internal/infrastructure/configuration/static_repository.go
type ServerConfigurationRepository interface {
	// Get returns the configuration of a tenant.
	// Returns:
	//   - error: a configuration_not_found CBCError when the tenant is unknown
	Get(ctx context.Context, tenantID string) (*models.ServerConfiguration, error)
}

// ClientConfigurationRepository provides registered client metadata.
type ClientConfigurationRepository interface {
	// Get returns the configuration of a client within a tenant.
	// Returns:
	//   - error: a configuration_not_found CBCError when the client is unknown
	Get(ctx context.Context, tenantID, clientID string) (*models.ClientConfiguration, error)
}
