package repository

import (
	"context"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
)

// LogoutNotificationRepository persists logout delivery records.
// Implementation: internal/infrastructure/persistence/gormrepo/logout_notification_repo.go
type LogoutNotificationRepository interface {
	// Save persists a new notification.
	Save(ctx context.Context, notification models.LogoutNotification) error

	// Update persists a state transition of an existing notification.
	Update(ctx context.Context, notification models.LogoutNotification) error
}

// JTIRepository remembers logout token identifiers to reject replays.
// Implementation: internal/infrastructure/redis/jti_store.go
type JTIRepository interface {
	// IsUsed reports whether the jti has been recorded.
	IsUsed(ctx context.Context, jti string) (bool, error)

	// MarkUsed records the jti for ttl. It is an atomic insert-if-absent: the returned bool is
	// false when the jti was already recorded.
	MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}
