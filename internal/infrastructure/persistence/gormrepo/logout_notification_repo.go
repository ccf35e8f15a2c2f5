package gormrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// LogoutNotificationRepo persists the delivery record of every logout notification.
type LogoutNotificationRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

var _ repository.LogoutNotificationRepository = (*LogoutNotificationRepo)(nil)

func NewLogoutNotificationRepo(db *gorm.DB, log logger.Logger) *LogoutNotificationRepo {
	return &LogoutNotificationRepo{db: db, logger: log.WithComponent("LogoutNotificationRepo")}
}

func (r *LogoutNotificationRepo) Save(ctx context.Context, notification models.LogoutNotification) error {
	if err := r.db.WithContext(ctx).Create(newLogoutNotificationRecord(notification)).Error; err != nil {
		r.logger.Error(ctx, "failed to save logout notification", err,
			logger.String("notification_id", notification.ID),
			logger.String("client_id", notification.ClientID))
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to save logout notification")
	}
	return nil
}

// Update writes the delivery outcome of an existing notification.
func (r *LogoutNotificationRepo) Update(ctx context.Context, notification models.LogoutNotification) error {
	record := newLogoutNotificationRecord(notification)
	result := r.db.WithContext(ctx).
		Model(&logoutNotificationRecord{ID: notification.ID}).
		Select("status", "http_status_code", "error_message", "completed_at", "logout_token_jti").
		Updates(record)
	if result.Error != nil {
		r.logger.Error(ctx, "failed to update logout notification", result.Error,
			logger.String("notification_id", notification.ID))
		return cbcerrors.WrapError(result.Error, constants.ErrCodeServerError, "failed to update logout notification")
	}
	if result.RowsAffected == 0 {
		return cbcerrors.ErrNotFound("logout notification is not found").WithMetadata("notification_id", notification.ID)
	}

	r.logger.Debug(ctx, "logout notification updated",
		logger.String("notification_id", notification.ID),
		logger.String("logout_status", string(notification.Status)))
	return nil
}

// Find loads one notification by id.
func (r *LogoutNotificationRepo) Find(ctx context.Context, id string) (*models.LogoutNotification, error) {
	var record logoutNotificationRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cbcerrors.ErrNotFound("logout notification is not found").WithMetadata("notification_id", id)
		}
		return nil, cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to load logout notification")
	}
	n := record.toModel()
	return &n, nil
}
