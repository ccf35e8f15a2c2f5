// Package service implements the domain services of the OIDC authorization protocol core:
// request resolution and verification, automatic authorization, response construction and
// logout orchestration. Collaborators are consumed through the interfaces in this file.
package service

import (
	"context"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
)

//go:generate mockery --name JoseHandler --output mocks --outpkg mocks
// JoseHandler parses, verifies and signs JWTs on behalf of a tenant.
// Implementation: internal/infrastructure/crypto/jose_handler.go
type JoseHandler interface {
	// ParseRequestObject parses a request object and verifies its signature against the client's
	// JWKS, the tenant's JWKS and, for HS* algorithms, the client secret.
	ParseRequestObject(ctx context.Context, raw string, server *models.ServerConfiguration, client *models.ClientConfiguration) (*models.JoseContext, error)

	// Sign signs claims with the tenant's current signing key. typ sets the JOSE typ header when non-empty.
	Sign(ctx context.Context, server *models.ServerConfiguration, claims map[string]interface{}, typ string) (string, error)

	// SigningAlgorithm returns the JWS algorithm Sign uses for the tenant. Hash claims bound into a
	// signed token must be computed with it.
	SigningAlgorithm(ctx context.Context, server *models.ServerConfiguration) (string, error)

	// Verify verifies a JWT against a JSON Web Key Set and returns its claims.
	Verify(ctx context.Context, raw string, jwks string) (map[string]interface{}, error)
}

//go:generate mockery --name RequestObjectGateway --output mocks --outpkg mocks
// RequestObjectGateway fetches request objects passed by reference.
// Implementation: internal/infrastructure/httpclient/request_object_gateway.go
type RequestObjectGateway interface {
	// Get returns the raw JWT served at requestURI.
	Get(ctx context.Context, requestURI string) (string, error)
}

//go:generate mockery --name BackChannelLogoutSender --output mocks --outpkg mocks
// BackChannelLogoutSender delivers logout tokens to relying parties.
// Implementation: internal/infrastructure/httpclient/backchannel_sender.go
type BackChannelLogoutSender interface {
	// Send POSTs logout_token=<jwt> as application/x-www-form-urlencoded. A call exceeding timeout
	// returns an error matching context.DeadlineExceeded.
	Send(ctx context.Context, uri, logoutToken string, timeout time.Duration) (*models.BackChannelResponse, error)
}

//go:generate mockery --name IDTokenCreator --output mocks --outpkg mocks
// IDTokenCreator issues ID tokens for the authorization endpoint.
type IDTokenCreator interface {
	Create(ctx context.Context, authorize *models.OAuthAuthorizeContext, custom models.IDTokenCustomClaims) (string, error)
}

//go:generate mockery --name AccessTokenCreator --output mocks --outpkg mocks
// AccessTokenCreator issues access tokens for the implicit and hybrid flows.
type AccessTokenCreator interface {
	Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (models.AccessToken, error)
}

//go:generate mockery --name VPTokenCreator --output mocks --outpkg mocks
// VPTokenCreator produces verifiable presentations for the vp_token response types.
type VPTokenCreator interface {
	Create(ctx context.Context, authorize *models.OAuthAuthorizeContext) (string, error)
}

// AuditService records security-sensitive audit events.
type AuditService interface {
	LogEvent(ctx context.Context, event models.AuditEvent) error
}

// Metrics defines the business metrics collected by the protocol core.
// This abstraction keeps services independent of the monitoring backend.
type Metrics interface {
	// RecordAuthorization records one authorization request outcome.
	RecordAuthorization(tenantID, responseType, status string, duration time.Duration)

	// RecordLogoutNotification records one logout notification outcome.
	RecordLogoutNotification(tenantID, channel, status string)

	// RecordBackChannelLatency records the latency of a back-channel delivery.
	RecordBackChannelLatency(tenantID string, duration time.Duration)

	// RecordLogoutTokenValidation records a received logout token validation result.
	RecordLogoutTokenValidation(result string)

	// RecordCacheAccess records a cache hit or miss.
	RecordCacheAccess(cacheType string, hit bool)
}
