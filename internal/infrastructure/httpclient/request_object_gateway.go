package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/turtacn/oidc-core/internal/domain/service"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// RequestObjectGateway fetches request objects from the request_uri a client registered.
type RequestObjectGateway struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

var _ service.RequestObjectGateway = (*RequestObjectGateway)(nil)

func NewRequestObjectGateway(client *http.Client, timeout time.Duration, log logger.Logger) *RequestObjectGateway {
	if client == nil {
		client = NewPooledClient()
	}
	if timeout <= 0 {
		timeout = defaultRequestObjectTimeout
	}
	return &RequestObjectGateway{client: client, timeout: timeout, logger: log.WithComponent("RequestObjectGateway")}
}

// Get returns the JWT served at requestURI. Every failure is an invalid_request_uri error.
func (g *RequestObjectGateway) Get(ctx context.Context, requestURI string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURI, nil)
	if err != nil {
		return "", errors.ErrInvalidRequestURI("request_uri is not a valid URL")
	}
	req.Header.Set("Accept", "application/oauth-authz-req+jwt, application/jwt")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn(ctx, "request object fetch failed",
			logger.String("request_uri", requestURI), logger.Err(err))
		return "", errors.ErrInvalidRequestURI("request_uri could not be fetched").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.ErrInvalidRequestURI(fmt.Sprintf("request_uri responded with status %d", resp.StatusCode))
	}
	body, err := readBody(resp.Body, maxResponseBody)
	if err != nil {
		return "", errors.ErrInvalidRequestURI("request_uri response could not be read").WithCause(err)
	}
	raw := strings.TrimSpace(body)
	if raw == "" {
		return "", errors.ErrInvalidRequestURI("request_uri returned an empty request object")
	}
	return raw, nil
}
