package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
)

var _ repository.UpstreamSessionRepository = (*UpstreamSessionStore)(nil)

// UpstreamSessionStore maps upstream sids to local OP sessions under upstream_session:<tenant>:<sid>.
type UpstreamSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewUpstreamSessionStore(client redis.UniversalClient) *UpstreamSessionStore {
	return &UpstreamSessionStore{client: client, now: time.Now}
}

func upstreamSessionKey(tenantID, upstreamSessionID string) string {
	return constants.CacheKeyPrefixUpstreamSession + tenantID + ":" + upstreamSessionID
}

// Bind overwrites an earlier mapping of the same upstream session.
func (s *UpstreamSessionStore) Bind(ctx context.Context, tenantID, upstreamSessionID, opSessionID string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	if err := s.client.Set(ctx, upstreamSessionKey(tenantID, upstreamSessionID), opSessionID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to bind upstream session: %w", err)
	}
	return nil
}

func (s *UpstreamSessionStore) Resolve(ctx context.Context, tenantID, upstreamSessionID string) (string, error) {
	opSessionID, err := s.client.Get(ctx, upstreamSessionKey(tenantID, upstreamSessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve upstream session: %w", err)
	}
	return opSessionID, nil
}
