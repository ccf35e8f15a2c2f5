package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/service"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// errorBodyLimit bounds the relying party body kept for failed deliveries.
const errorBodyLimit = 4 << 10

// BackChannelSender POSTs logout tokens to relying parties.
type BackChannelSender struct {
	client *http.Client
	logger logger.Logger
}

var _ service.BackChannelLogoutSender = (*BackChannelSender)(nil)

func NewBackChannelSender(client *http.Client, log logger.Logger) *BackChannelSender {
	if client == nil {
		client = NewPooledClient()
	}
	return &BackChannelSender{client: client, logger: log.WithComponent("BackChannelSender")}
}

func (s *BackChannelSender) Send(ctx context.Context, uri, logoutToken string, timeout time.Duration) (*models.BackChannelResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	form := url.Values{"logout_token": {logoutToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-store")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug(ctx, "back-channel logout request failed",
			logger.String("uri", uri), logger.Err(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body, errorBodyLimit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "back-channel logout delivered",
		logger.String("uri", uri),
		logger.Int("http_status", resp.StatusCode),
		logger.Duration("latency", time.Since(start)))

	return &models.BackChannelResponse{StatusCode: resp.StatusCode, Body: body}, nil
}
