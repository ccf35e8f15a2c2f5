package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
)

var _ repository.OAuthSessionRepository = (*OAuthSessionStore)(nil)

// OAuthSessionStore keeps per-client sessions under oauth_session:<issuer>:<client_id>.
// Entries expire with the session.
type OAuthSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewOAuthSessionStore(client redis.UniversalClient) *OAuthSessionStore {
	return &OAuthSessionStore{client: client, now: time.Now}
}

func oauthSessionKey(key models.OAuthSessionKey) string {
	return constants.CacheKeyPrefixOAuthSession + key.String()
}

func (s *OAuthSessionStore) Find(ctx context.Context, key models.OAuthSessionKey) (*models.OAuthSession, error) {
	data, err := s.client.Get(ctx, oauthSessionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get oauth session: %w", err)
	}

	var session models.OAuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth session: %w", err)
	}
	return &session, nil
}

func (s *OAuthSessionStore) Register(ctx context.Context, session models.OAuthSession) error {
	return s.save(ctx, session)
}

func (s *OAuthSessionStore) Update(ctx context.Context, session models.OAuthSession) error {
	return s.save(ctx, session)
}

func (s *OAuthSessionStore) Delete(ctx context.Context, key models.OAuthSessionKey) error {
	if err := s.client.Del(ctx, oauthSessionKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete oauth session: %w", err)
	}
	return nil
}

// save overwrites the key. An already expired session removes it instead.
func (s *OAuthSessionStore) save(ctx context.Context, session models.OAuthSession) error {
	ttl := session.TTL(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, session.Key)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth session: %w", err)
	}
	if err := s.client.Set(ctx, oauthSessionKey(session.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth session: %w", err)
	}
	return nil
}
