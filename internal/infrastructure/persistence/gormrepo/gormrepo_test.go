package gormrepo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

var repoNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type GormRepoTestSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func TestGormRepoTestSuite(t *testing.T) {
	suite.Run(t, new(GormRepoTestSuite))
}

func (s *GormRepoTestSuite) SetupTest() {
	s.ctx = context.Background()
	// one named in-memory database per test
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(s.T().Name(), "/", "_"))
	db, err := Open(s.ctx, &config.DatabaseConfig{Driver: "sqlite", DSN: dsn, AutoMigrate: true}, logger.NewNoopLogger())
	s.Require().NoError(err)
	s.db = db
}

func (s *GormRepoTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func (s *GormRepoTestSuite) TestPing() {
	s.NoError(Ping(s.ctx, s.db))
}

func (s *GormRepoTestSuite) TestAuthorizationRequestRoundTrip() {
	repo := NewAuthorizationRequestRepo(s.db, logger.NewNoopLogger())
	maxAge := int64(600)
	request := &models.AuthorizationRequest{
		ID:           "req-1",
		TenantID:     "tenant-a",
		Profile:      constants.ProfileOIDC,
		ClientID:     "client-1",
		ResponseType: constants.ResponseTypeCode,
		Scopes:       []string{"openid", "profile"},
		RedirectURI:  "https://rp.example.com/cb",
		State:        "xyz",
		Nonce:        "n-1",
		MaxAge:       &maxAge,
		Prompts:      []constants.Prompt{constants.PromptNone},
		CreatedAt:    repoNow,
		ExpiresAt:    repoNow.Add(30 * time.Minute),
	}
	s.Require().NoError(repo.Register(s.ctx, request))

	_, err := repo.Consume(s.ctx, "tenant-b", "req-1")
	s.True(cbcerrors.IsNotFoundError(err), "requests are tenant scoped")

	found, err := repo.Consume(s.ctx, "tenant-a", "req-1")
	s.Require().NoError(err)
	s.Equal("client-1", found.ClientID)
	s.Equal(constants.ResponseTypeCode, found.ResponseType)
	s.Equal([]string{"openid", "profile"}, found.Scopes)
	s.Require().NotNil(found.MaxAge)
	s.Equal(int64(600), *found.MaxAge)
	s.True(found.ExpiresAt.Equal(request.ExpiresAt))

	_, err = repo.Consume(s.ctx, "tenant-a", "req-1")
	s.True(cbcerrors.IsNotFoundError(err), "a request is consumed once")

	_, err = repo.Consume(s.ctx, "tenant-a", "missing")
	s.True(cbcerrors.HasCode(err, constants.ErrCodeNotFound))
}

func (s *GormRepoTestSuite) TestAuthorizationGrantedLifecycle() {
	repo := NewAuthorizationGrantedRepo(s.db, logger.NewNoopLogger())

	none, err := repo.Find(s.ctx, "tenant-a", "client-1", "user-1")
	s.Require().NoError(err)
	s.Nil(none)

	granted := &models.AuthorizationGranted{
		TenantID:  "tenant-a",
		ClientID:  "client-1",
		Subject:   "user-1",
		Scopes:    []string{"openid"},
		CreatedAt: repoNow,
		UpdatedAt: repoNow,
	}
	s.Require().NoError(repo.Register(s.ctx, granted))
	s.NotEmpty(granted.ID)

	tos := repoNow.Add(time.Minute)
	merged := granted.Merge([]string{"profile"}, []string{"email"}, nil, models.ConsentClaims{TermsOfServiceAcceptedAt: &tos}, repoNow.Add(time.Hour))
	s.Require().NoError(repo.Update(s.ctx, &merged))

	found, err := repo.Find(s.ctx, "tenant-a", "client-1", "user-1")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(granted.ID, found.ID)
	s.Equal([]string{"openid", "profile"}, found.Scopes)
	s.Equal([]string{"email"}, found.IDTokenClaims)
	s.Require().NotNil(found.Consent.TermsOfServiceAcceptedAt)
	s.True(found.Consent.TermsOfServiceAcceptedAt.Equal(tos))

	missing := models.AuthorizationGranted{ID: "nope"}
	err = repo.Update(s.ctx, &missing)
	s.True(cbcerrors.IsNotFoundError(err))
}

func (s *GormRepoTestSuite) TestAuthorizationGrantedIsUniquePerOwner() {
	repo := NewAuthorizationGrantedRepo(s.db, logger.NewNoopLogger())
	first := &models.AuthorizationGranted{TenantID: "t", ClientID: "c", Subject: "u"}
	s.Require().NoError(repo.Register(s.ctx, first))

	second := &models.AuthorizationGranted{TenantID: "t", ClientID: "c", Subject: "u"}
	err := repo.Register(s.ctx, second)
	s.Require().Error(err)
	s.True(cbcerrors.HasCode(err, constants.ErrCodeServerError))
}

func (s *GormRepoTestSuite) TestAuthorizedTokenRegister() {
	repo := NewAuthorizedTokenRepo(s.db, logger.NewNoopLogger())
	token := &models.AuthorizedToken{
		TenantID:  "tenant-a",
		ClientID:  "client-1",
		Subject:   "user-1",
		TokenJTI:  "jti-1",
		TokenType: constants.TokenTypeBearer,
		Scopes:    []string{"openid"},
		IssuedAt:  repoNow,
		ExpiresAt: repoNow.Add(time.Hour),
	}
	s.Require().NoError(repo.Register(s.ctx, token))
	s.NotEmpty(token.ID)

	var count int64
	s.Require().NoError(s.db.Model(&authorizedTokenRecord{}).Where("jti = ?", "jti-1").Count(&count).Error)
	s.Equal(int64(1), count)

	dup := *token
	dup.ID = ""
	s.Error(repo.Register(s.ctx, &dup), "jti is unique")
}

func (s *GormRepoTestSuite) TestCodeGrantLifecycle() {
	repo := NewCodeGrantRepo(s.db, logger.NewNoopLogger())
	grant := &models.AuthorizationCodeGrant{
		Code:           "code-1",
		TenantID:       "tenant-a",
		ClientID:       "client-1",
		User:           models.User{Subject: "user-1"},
		Authentication: models.Authentication{Methods: []string{"pwd"}, Time: repoNow},
		Scopes:         []string{"openid"},
		Nonce:          "n",
		CreatedAt:      repoNow,
		ExpiresAt:      repoNow.Add(10 * time.Minute),
	}
	s.Require().NoError(repo.Register(s.ctx, grant))

	found, err := repo.Find(s.ctx, "tenant-a", "code-1")
	s.Require().NoError(err)
	s.Equal("user-1", found.User.Subject)
	s.Equal([]string{"pwd"}, found.Authentication.Methods)

	s.Require().NoError(repo.Delete(s.ctx, "tenant-a", "code-1"))
	_, err = repo.Find(s.ctx, "tenant-a", "code-1")
	s.True(cbcerrors.IsNotFoundError(err))
	s.NoError(repo.Delete(s.ctx, "tenant-a", "code-1"), "deleting twice is harmless")
}

func (s *GormRepoTestSuite) TestLogoutNotificationTransitions() {
	repo := NewLogoutNotificationRepo(s.db, logger.NewNoopLogger())
	n := models.LogoutNotification{
		ID:        "n-1",
		TenantID:  "tenant-a",
		Channel:   constants.LogoutChannelBack,
		ClientID:  "client-1",
		SessionID: "sid-1",
		Subject:   "user-1",
		LogoutURI: "https://rp.example.com/logout",
		Status:    constants.LogoutStatusPending,
		CreatedAt: repoNow,
	}
	s.Require().NoError(repo.Save(s.ctx, n))

	completed := repoNow.Add(time.Second)
	n.Status = constants.LogoutStatusFailed
	n.HTTPStatusCode = 503
	n.ErrorMessage = "unavailable"
	n.CompletedAt = &completed
	s.Require().NoError(repo.Update(s.ctx, n))

	found, err := repo.Find(s.ctx, "n-1")
	s.Require().NoError(err)
	s.Equal(constants.LogoutStatusFailed, found.Status)
	s.Equal(503, found.HTTPStatusCode)
	s.Equal("unavailable", found.ErrorMessage)
	s.Equal(constants.LogoutChannelBack, found.Channel)
	s.Require().NotNil(found.CompletedAt)
	s.True(found.CompletedAt.Equal(completed))

	n.ID = "unknown"
	s.True(cbcerrors.IsNotFoundError(repo.Update(s.ctx, n)))
	_, err = repo.Find(s.ctx, "unknown")
	s.True(cbcerrors.IsNotFoundError(err))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "oracle", DSN: "x"}, logger.NewNoopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
