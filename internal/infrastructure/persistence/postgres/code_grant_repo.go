package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/pkg/constants"
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createCodeGrantTable = `
	CREATE TABLE IF NOT EXISTS authorization_code_grants (
		tenant_id  TEXT NOT NULL,
		code       TEXT NOT NULL,
		client_id  TEXT NOT NULL,
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant_id, code)
	)`

// CodeGrantRepository stores authorization code grants with raw SQL on the pgx pool.
type CodeGrantRepository struct {
	db     querier
	logger logger.Logger
}

var _ repository.AuthorizationCodeGrantRepository = (*CodeGrantRepository)(nil)

func NewCodeGrantRepository(db *DBConnection, log logger.Logger) *CodeGrantRepository {
	return newCodeGrantRepository(db.Pool(), log)
}

func newCodeGrantRepository(q querier, log logger.Logger) *CodeGrantRepository {
	return &CodeGrantRepository{db: q, logger: log.WithComponent("CodeGrantRepository")}
}

// EnsureSchema creates the table when it does not exist yet.
func (r *CodeGrantRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createCodeGrantTable); err != nil {
		r.logger.Error(ctx, "failed to create authorization_code_grants table", err)
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to create authorization code grant table")
	}
	return nil
}

func (r *CodeGrantRepository) Register(ctx context.Context, grant *models.AuthorizationCodeGrant) error {
	payload, err := json.Marshal(grant)
	if err != nil {
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to encode authorization code grant")
	}

	start := time.Now()
	_, err = r.db.Exec(ctx, `
		INSERT INTO authorization_code_grants (tenant_id, code, client_id, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		grant.TenantID, grant.Code, grant.ClientID, payload, grant.CreatedAt, grant.ExpiresAt)
	if err != nil {
		r.logger.Error(ctx, "failed to register authorization code grant", err,
			logger.String("client_id", grant.ClientID))
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to register authorization code grant")
	}

	if latency := time.Since(start); latency > 100*time.Millisecond {
		r.logger.Warn(ctx, "slow authorization code insert",
			logger.Int64("latency_ms", latency.Milliseconds()))
	}
	return nil
}

func (r *CodeGrantRepository) Find(ctx context.Context, tenantID, code string) (*models.AuthorizationCodeGrant, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT payload FROM authorization_code_grants WHERE tenant_id = $1 AND code = $2`,
		tenantID, code).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cbcerrors.ErrNotFound("authorization code is not found")
		}
		r.logger.Error(ctx, "failed to load authorization code grant", err)
		return nil, cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to load authorization code grant")
	}

	var grant models.AuthorizationCodeGrant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return nil, cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to decode authorization code grant")
	}
	return &grant, nil
}

func (r *CodeGrantRepository) Delete(ctx context.Context, tenantID, code string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM authorization_code_grants WHERE tenant_id = $1 AND code = $2`, tenantID, code)
	if err != nil {
		r.logger.Error(ctx, "failed to delete authorization code grant", err)
		return cbcerrors.WrapError(err, constants.ErrCodeServerError, "failed to delete authorization code grant")
	}
	r.logger.Debug(ctx, "authorization code grant deleted", logger.Int64("rows", tag.RowsAffected()))
	return nil
}
