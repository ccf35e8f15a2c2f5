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

// AuthorizationRequestRepo stores verified authorization requests.
type AuthorizationRequestRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewAuthorizationRequestRepo(db *gorm.DB, log logger.Logger) repository.AuthorizationRequestRepository {
	return &AuthorizationRequestRepo{db: db, logger: log.WithComponent("AuthorizationRequestRepo")}
}

func (r *AuthorizationRequestRepo) Register(ctx context.Context, request *models.AuthorizationRequest) error {
	if err := r.db.WithContext(ctx).Create(newAuthorizationRequestRecord(request)).Error; err != nil {
		r.logger.Error(ctx, "failed to register authorization request", err,
			logger.String("authorization_request_id", request.ID),
			logger.String("client_id", request.ClientID))
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to register authorization request")
	}
	return nil
}

// Consume reads and deletes the request in one transaction. The delete decides the winner
// between concurrent consumers.
func (r *AuthorizationRequestRepo) Consume(ctx context.Context, tenantID, requestID string) (*models.AuthorizationRequest, error) {
	var record authorizationRequestRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, requestID).First(&record).Error; err != nil {
			return err
		}
		res := tx.Where("tenant_id = ? AND id = ?", tenantID, requestID).Delete(&authorizationRequestRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Debug(ctx, "authorization request not found", logger.String("authorization_request_id", requestID))
			return nil, cbcerrors.ErrAuthorizationRequestNotFound(requestID)
		}
		r.logger.Error(ctx, "failed to load authorization request", err,
			logger.String("authorization_request_id", requestID))
		return nil, cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to load authorization request")
	}

	request := record.Payload
	return &request, nil
}
