package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
)

var _ repository.JTIRepository = (*JTIStore)(nil)

// JTIStore records logout token identifiers for replay detection.
type JTIStore struct {
	client redis.UniversalClient
}

func NewJTIStore(client redis.UniversalClient) *JTIStore {
	return &JTIStore{client: client}
}

func jtiKey(jti string) string { return constants.CacheKeyPrefixLogoutJTI + jti }

func (s *JTIStore) IsUsed(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check jti: %w", err)
	}
	return n == 1, nil
}

// MarkUsed is a SET NX with expiry: only the first caller for a jti gets true.
func (s *JTIStore) MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = constants.LogoutTokenJTITTL
	}
	ok, err := s.client.SetNX(ctx, jtiKey(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record jti: %w", err)
	}
	return ok, nil
}
