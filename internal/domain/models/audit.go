package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/oidc-core/pkg/constants"
)

// AuditEvent is a single audit trail entry emitted by authorization and logout flows.
type AuditEvent struct {
	EventID   string                   `json:"event_id" gorm:"primaryKey;size:36"`
	TenantID  string                   `json:"tenant_id" gorm:"index;size:128"`
	EventType constants.AuditEventType `json:"event_type" gorm:"index;size:64"`
	ClientID  string                   `json:"client_id,omitempty" gorm:"size:255"`
	Subject   string                   `json:"sub,omitempty" gorm:"size:255"`
	Result    string                   `json:"result" gorm:"size:32"`
	Message   string                   `json:"message,omitempty"`
	TraceID   string                   `json:"trace_id,omitempty" gorm:"size:64"`
	Timestamp time.Time                `json:"timestamp" gorm:"index"`
}

// NewAuditEvent creates an audit entry stamped with a fresh id and the current UTC time.
func NewAuditEvent(tenantID string, eventType constants.AuditEventType, result, message string) AuditEvent {
	return AuditEvent{
		EventID:   uuid.NewString(),
		TenantID:  tenantID,
		EventType: eventType,
		Result:    result,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithClient sets the client and subject the event concerns.
func (e AuditEvent) WithClient(clientID, subject string) AuditEvent {
	e.ClientID = clientID
	e.Subject = subject
	return e
}
