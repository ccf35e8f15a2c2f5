package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// CodeGrantRepo keeps authorization code grants in the gorm database. It is used when no
// dedicated PostgreSQL pool is configured.
type CodeGrantRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewCodeGrantRepo(db *gorm.DB, log logger.Logger) repository.AuthorizationCodeGrantRepository {
	return &CodeGrantRepo{db: db, logger: log.WithComponent("CodeGrantRepo")}
}

func (r *CodeGrantRepo) Register(ctx context.Context, grant *models.AuthorizationCodeGrant) error {
	record := &codeGrantRecord{
		Code:      grant.Code,
		TenantID:  grant.TenantID,
		ClientID:  grant.ClientID,
		Payload:   *grant,
		CreatedAt: grant.CreatedAt,
		ExpiresAt: grant.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logger.Error(ctx, "failed to register authorization code grant", err,
			logger.String("client_id", grant.ClientID))
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to register authorization code grant")
	}
	return nil
}

func (r *CodeGrantRepo) Find(ctx context.Context, tenantID, code string) (*models.AuthorizationCodeGrant, error) {
	var record codeGrantRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cbcerrors.ErrNotFound("authorization code is not found")
		}
		return nil, cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to load authorization code grant")
	}
	grant := record.Payload
	return &grant, nil
}

func (r *CodeGrantRepo) Delete(ctx context.Context, tenantID, code string) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Delete(&codeGrantRecord{}).Error
	if err != nil {
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, fmt.Sprintf("failed to delete authorization code grant for tenant %s", tenantID))
	}
	return nil
}
