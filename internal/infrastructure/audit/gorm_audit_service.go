// Package audit implements the AuditService sinks: the relational audit table, a Kafka topic,
// and a fan-out that writes to several sinks at once.
package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/service"
)

// GormAuditService stores audit events in the audit_events table.
type GormAuditService struct {
	db *gorm.DB
}

func NewGormAuditService(db *gorm.DB) service.AuditService {
	return &GormAuditService{db: db}
}

func (s *GormAuditService) LogEvent(ctx context.Context, event models.AuditEvent) error {
	return s.db.WithContext(ctx).Create(&event).Error
}
