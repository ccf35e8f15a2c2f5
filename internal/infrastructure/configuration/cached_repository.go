package configuration

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/internal/domain/service"
	"github.com/turtacn/oidc-core/pkg/constants"
)

const (
	serverCacheType = "server_configuration"
	clientCacheType = "client_configuration"
)

// Cache is an in-process TTL cache in front of the configuration repositories. Only successful
// lookups are cached.
type Cache struct {
	cache   *gocache.Cache
	metrics service.Metrics
}

func NewCache(ttl time.Duration, metrics service.Metrics) *Cache {
	return &Cache{
		cache:   gocache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

// Flush drops every cached entry; called after a configuration reload.
func (c *Cache) Flush() {
	c.cache.Flush()
}

func (c *Cache) record(cacheType string, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheAccess(cacheType, hit)
	}
}

// Server wraps next with the cache.
func (c *Cache) Server(next repository.ServerConfigurationRepository) repository.ServerConfigurationRepository {
	return &cachedServerRepository{cache: c, next: next}
}

// Client wraps next with the cache.
func (c *Cache) Client(next repository.ClientConfigurationRepository) repository.ClientConfigurationRepository {
	return &cachedClientRepository{cache: c, next: next}
}

type cachedServerRepository struct {
	cache *Cache
	next  repository.ServerConfigurationRepository
}

func (r *cachedServerRepository) Get(ctx context.Context, tenantID string) (*models.ServerConfiguration, error) {
	key := constants.CacheKeyPrefixServerConfig + tenantID
	if v, ok := r.cache.cache.Get(key); ok {
		r.cache.record(serverCacheType, true)
		return v.(*models.ServerConfiguration), nil
	}
	r.cache.record(serverCacheType, false)

	cfg, err := r.next.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r.cache.cache.SetDefault(key, cfg)
	return cfg, nil
}

type cachedClientRepository struct {
	cache *Cache
	next  repository.ClientConfigurationRepository
}

func (r *cachedClientRepository) Get(ctx context.Context, tenantID, clientID string) (*models.ClientConfiguration, error) {
	key := constants.CacheKeyPrefixClientConfig + tenantID + ":" + clientID
	if v, ok := r.cache.cache.Get(key); ok {
		r.cache.record(clientCacheType, true)
		return v.(*models.ClientConfiguration), nil
	}
	r.cache.record(clientCacheType, false)

	cfg, err := r.next.Get(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	r.cache.cache.SetDefault(key, cfg)
	return cfg, nil
}
