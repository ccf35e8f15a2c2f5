package audit

import (
	"context"
	"errors"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/service"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// Fanout writes every event to all sinks. A failing sink does not stop the others; the
// joined error is returned.
type Fanout struct {
	sinks  []service.AuditService
	logger logger.Logger
}

func NewFanout(log logger.Logger, sinks ...service.AuditService) *Fanout {
	return &Fanout{sinks: sinks, logger: log.WithComponent("AuditFanout")}
}

func (f *Fanout) LogEvent(ctx context.Context, event models.AuditEvent) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.LogEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		f.logger.Warn(ctx, "audit event not recorded by every sink",
			logger.String("event_type", string(event.EventType)),
			logger.Int("failed_sinks", len(errs)))
	}
	return errors.Join(errs...)
}
