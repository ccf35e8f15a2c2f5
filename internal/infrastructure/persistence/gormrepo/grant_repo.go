package gormrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// AuthorizationGrantedRepo stores the scopes, claims and consent a user granted to a client.
// There is at most one row per (tenant, client, subject).
type AuthorizationGrantedRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewAuthorizationGrantedRepo(db *gorm.DB, log logger.Logger) repository.AuthorizationGrantedRepository {
	return &AuthorizationGrantedRepo{db: db, logger: log.WithComponent("AuthorizationGrantedRepo")}
}

func (r *AuthorizationGrantedRepo) Find(ctx context.Context, tenantID, clientID, subject string) (*models.AuthorizationGranted, error) {
	var record authorizationGrantedRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND subject = ?", tenantID, clientID, subject).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error(ctx, "failed to load authorization grant", err,
			logger.String("client_id", clientID))
		return nil, cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to load authorization grant")
	}
	return record.toModel(), nil
}

// Register inserts a new grant, assigning an id when the caller left it empty.
func (r *AuthorizationGrantedRepo) Register(ctx context.Context, granted *models.AuthorizationGranted) error {
	if granted.ID == "" {
		granted.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(newAuthorizationGrantedRecord(granted)).Error; err != nil {
		r.logger.Error(ctx, "failed to register authorization grant", err,
			logger.String("client_id", granted.ClientID))
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to register authorization grant")
	}
	return nil
}

func (r *AuthorizationGrantedRepo) Update(ctx context.Context, granted *models.AuthorizationGranted) error {
	result := r.db.WithContext(ctx).
		Model(&authorizationGrantedRecord{ID: granted.ID}).
		Select("scopes", "id_token_claims", "userinfo_claims", "consent", "updated_at").
		Updates(newAuthorizationGrantedRecord(granted))
	if result.Error != nil {
		r.logger.Error(ctx, "failed to update authorization grant", result.Error,
			logger.String("grant_id", granted.ID))
		return cbcerrors.WrapError(result.Error, constants.ErrCodeServerError, "failed to update authorization grant")
	}
	if result.RowsAffected == 0 {
		return cbcerrors.ErrNotFound("authorization grant is not found").WithMetadata("grant_id", granted.ID)
	}
	return nil
}

// AuthorizedTokenRepo records access tokens issued directly from the authorization endpoint.
type AuthorizedTokenRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewAuthorizedTokenRepo(db *gorm.DB, log logger.Logger) repository.AuthorizedTokenRepository {
	return &AuthorizedTokenRepo{db: db, logger: log.WithComponent("AuthorizedTokenRepo")}
}

func (r *AuthorizedTokenRepo) Register(ctx context.Context, token *models.AuthorizedToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(newAuthorizedTokenRecord(token)).Error; err != nil {
		r.logger.Error(ctx, "failed to register authorized token", err,
			logger.String("client_id", token.ClientID),
			logger.String("jti", token.TokenJTI))
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to register authorized token")
	}
	return nil
}
