package repository

import (
	"context"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
)

// OAuthSessionRepository stores per-client sessions. Writes are last-writer-wins per key.
// Implementation: internal/infrastructure/redis/oauth_session_store.go
type OAuthSessionRepository interface {
	// Find returns the session for the key, or (nil, nil) when none is stored.
	Find(ctx context.Context, key models.OAuthSessionKey) (*models.OAuthSession, error)

	Register(ctx context.Context, session models.OAuthSession) error

	Update(ctx context.Context, session models.OAuthSession) error

	Delete(ctx context.Context, key models.OAuthSessionKey) error
}

// OPSessionRepository stores single-sign-on sessions.
// Implementation: internal/infrastructure/redis/op_session_store.go
type OPSessionRepository interface {
	Register(ctx context.Context, session models.OPSession) error

	// Find returns the OP session, or (nil, nil) when none is stored.
	Find(ctx context.Context, tenantID, opSessionID string) (*models.OPSession, error)

	// AddClientSession binds a client session to an existing OP session and keeps the OP session
	// alive until at least expiresAt, the expiry of the bound client session.
	// Returns:
	//   - error: not_found CBCError when the OP session is no longer stored
	AddClientSession(ctx context.Context, tenantID, opSessionID string, cs models.ClientSession, expiresAt time.Time) error

	// Terminate removes the OP session and returns the state it had. A missing session yields
	// (nil, nil), so repeated terminations are harmless.
	Terminate(ctx context.Context, tenantID, opSessionID string) (*models.OPSession, error)
}

// UpstreamSessionRepository maps the session ids a tenant's upstream provider issued to the local
// OP sessions they authenticated, so upstream logout tokens reach the right local session.
// Implementation: internal/infrastructure/redis/upstream_session_store.go
type UpstreamSessionRepository interface {
	// Bind records that the upstream session backs the OP session until expiresAt.
	Bind(ctx context.Context, tenantID, upstreamSessionID, opSessionID string, expiresAt time.Time) error

	// Resolve returns the bound OP session id, or "" when the upstream session is unknown.
	Resolve(ctx context.Context, tenantID, upstreamSessionID string) (string, error)
}
