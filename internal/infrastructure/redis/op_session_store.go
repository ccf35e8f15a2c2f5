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
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
)

var _ repository.OPSessionRepository = (*OPSessionStore)(nil)

// maxWatchRetries bounds optimistic-lock retries of AddClientSession.
const maxWatchRetries = 5

// OPSessionStore keeps single-sign-on sessions under op_session:<tenant>:<id>.
type OPSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewOPSessionStore(client redis.UniversalClient) *OPSessionStore {
	return &OPSessionStore{client: client, now: time.Now}
}

func opSessionKey(tenantID, opSessionID string) string {
	return constants.CacheKeyPrefixOPSession + tenantID + ":" + opSessionID
}

func (s *OPSessionStore) ttl(session models.OPSession) time.Duration {
	if session.ExpiresAt.IsZero() {
		return 0
	}
	d := session.ExpiresAt.Sub(s.now())
	if d <= 0 {
		// already expired; keep it just long enough for a pending logout to read it
		return time.Second
	}
	return d
}

func (s *OPSessionStore) Register(ctx context.Context, session models.OPSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal op session: %w", err)
	}
	if err := s.client.Set(ctx, opSessionKey(session.TenantID, session.ID), data, s.ttl(session)).Err(); err != nil {
		return fmt.Errorf("failed to store op session: %w", err)
	}
	return nil
}

func (s *OPSessionStore) Find(ctx context.Context, tenantID, opSessionID string) (*models.OPSession, error) {
	data, err := s.client.Get(ctx, opSessionKey(tenantID, opSessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get op session: %w", err)
	}
	return decodeOPSession(data)
}

// AddClientSession updates the session under WATCH so concurrent logins of different clients are not lost.
// The key TTL follows the extended expiry, so the OP session never expires before a client session bound to it.
func (s *OPSessionStore) AddClientSession(ctx context.Context, tenantID, opSessionID string, cs models.ClientSession, expiresAt time.Time) error {
	key := opSessionKey(tenantID, opSessionID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return cbcerrors.ErrSessionNotFound(opSessionID)
			}
			return err
		}
		session, err := decodeOPSession(data)
		if err != nil {
			return err
		}
		next := session.WithClientSession(cs).ExtendedTo(expiresAt)
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl(next))
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !cbcerrors.IsCBCError(err) {
			return fmt.Errorf("failed to add client session: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to add client session: too much contention on %s", key)
}

// Terminate reads and removes the session in one GETDEL, so concurrent logouts notify clients once.
func (s *OPSessionStore) Terminate(ctx context.Context, tenantID, opSessionID string) (*models.OPSession, error) {
	data, err := s.client.GetDel(ctx, opSessionKey(tenantID, opSessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to terminate op session: %w", err)
	}
	return decodeOPSession(data)
}

func decodeOPSession(data []byte) (*models.OPSession, error) {
	var session models.OPSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal op session: %w", err)
	}
	return &session, nil
}
