package repository

import (
	"context"

	"github.com/turtacn/oidc-core/internal/domain/models"
)

// AuthorizationRequestRepository stores verified authorization requests so interactive flows can resume them.
// Implementation: internal/infrastructure/persistence/gormrepo/authorization_request_repo.go
type AuthorizationRequestRepository interface {
	// Register persists a request.
	Register(ctx context.Context, request *models.AuthorizationRequest) error

	// Consume loads a request of the tenant and removes it. Of concurrent callers only one
	// obtains the request.
	// Returns:
	//   - error: not_found CBCError when the request does not exist or was already consumed
	Consume(ctx context.Context, tenantID, requestID string) (*models.AuthorizationRequest, error)
}

// AuthorizationCodeGrantRepository stores the state behind issued authorization codes.
// Implementation: internal/infrastructure/persistence/postgres/code_grant_repo.go
type AuthorizationCodeGrantRepository interface {
	Register(ctx context.Context, grant *models.AuthorizationCodeGrant) error

	// Find returns the grant for a code.
	// Returns:
	//   - error: not_found CBCError when the code is unknown
	Find(ctx context.Context, tenantID, code string) (*models.AuthorizationCodeGrant, error)

	Delete(ctx context.Context, tenantID, code string) error
}

// AuthorizedTokenRepository records access tokens issued from the authorization endpoint.
type AuthorizedTokenRepository interface {
	Register(ctx context.Context, token *models.AuthorizedToken) error
}

// AuthorizationGrantedRepository stores what a user has granted to a client.
type AuthorizationGrantedRepository interface {
	// Find returns the grant of a user to a client, or (nil, nil) when none exists.
	Find(ctx context.Context, tenantID, clientID, subject string) (*models.AuthorizationGranted, error)

	Register(ctx context.Context, granted *models.AuthorizationGranted) error

	Update(ctx context.Context, granted *models.AuthorizationGranted) error
}
